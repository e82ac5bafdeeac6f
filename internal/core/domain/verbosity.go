package domain

import "fmt"

// Verbosity controla quanto de informação a resposta de throttling revela.
type Verbosity int

const (
	VerbosityNormal Verbosity = iota
	VerbosityDebug
	VerbosityMinimal
)

func (v Verbosity) String() string {
	switch v {
	case VerbosityDebug:
		return "debug"
	case VerbosityMinimal:
		return "minimal"
	default:
		return "normal"
	}
}

// ParseVerbosity converte o valor de configuração, rejeitando valores
// desconhecidos na inicialização.
func ParseVerbosity(s string) (Verbosity, error) {
	switch s {
	case "debug":
		return VerbosityDebug, nil
	case "normal", "":
		return VerbosityNormal, nil
	case "minimal":
		return VerbosityMinimal, nil
	default:
		return VerbosityNormal, fmt.Errorf("unknown verbosity: %q", s)
	}
}
