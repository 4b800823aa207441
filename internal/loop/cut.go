package loop

import "conferencia/painel/internal/types"

// HasCut reports whether any item was delivered short of its original
// quantity. Missing quantities fall back original -> expected -> current -> 0;
// a missing current quantity counts as fully delivered.
func HasCut(o types.Order) bool {
	for _, it := range o.Items {
		original := effectiveOriginal(it)
		delivered := original
		if it.CurrentQty != nil {
			delivered = *it.CurrentQty
		}
		if delivered < original {
			return true
		}
	}
	return false
}

func effectiveOriginal(it types.Item) float64 {
	switch {
	case it.OriginalQty != nil:
		return *it.OriginalQty
	case it.ExpectedQty != nil:
		return *it.ExpectedQty
	case it.CurrentQty != nil:
		return *it.CurrentQty
	}
	return 0
}
