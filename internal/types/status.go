package types

var statusLabels = map[string]string{
	"A":  "Em andamento",
	"AC": "Aguardando conferência",
	"AL": "Aguardando liberação p/ conferência",
	"C":  "Aguardando liberação de corte",
	"D":  "Finalizada divergente",
	"F":  "Finalizada OK",
	"R":  "Aguardando recontagem",
	"RA": "Recontagem em andamento",
	"RD": "Recontagem finalizada divergente",
	"RF": "Recontagem finalizada OK",
	"Z":  "Aguardando finalização",
}

// StatusLabel maps a conference status code to its display label.
// Unknown codes are returned unchanged.
func StatusLabel(code string) string {
	if l, ok := statusLabels[code]; ok {
		return l
	}
	return code
}
