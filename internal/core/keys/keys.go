// Package keys disponibiliza as estratégias de derivação de chave de throttling.
package keys

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/tanguilp/apiac-filter-throttler/internal/core/domain"
)

// Strategy é uma função pura que mapeia o contexto da requisição para a chave
// de bucket, podendo opcionalmente sobrescrever scale/limit (ver
// domain.KeyResult). A mesma entrada sempre produz a mesma chave.
type Strategy func(domain.RequestContext) (domain.KeyResult, error)

// ByIP deriva a chave do endereço remoto.
func ByIP(rc domain.RequestContext) (domain.KeyResult, error) {
	return domain.KeyResult{Key: rc.RemoteIP}, nil
}

// ByIPAndPath combina endereço remoto e path da requisição.
func ByIPAndPath(rc domain.RequestContext) (domain.KeyResult, error) {
	return domain.KeyResult{Key: join(rc.RemoteIP, rc.Path)}, nil
}

// ByClient deriva a chave do identificador autenticado do cliente.
//
// Sem identidade de cliente presente o erro é fatal por decisão de projeto:
// throttlar tráfego anônimo sob uma chave escopada por cliente ou não
// limitaria nada, ou criaria um bucket compartilhado por todo o tráfego
// anônimo.
func ByClient(rc domain.RequestContext) (domain.KeyResult, error) {
	if rc.ClientID == "" {
		return domain.KeyResult{}, domain.ErrMissingClientID
	}
	return domain.KeyResult{Key: rc.ClientID}, nil
}

// ByClientAndPath combina identificador do cliente e path.
func ByClientAndPath(rc domain.RequestContext) (domain.KeyResult, error) {
	if rc.ClientID == "" {
		return domain.KeyResult{}, domain.ErrMissingClientID
	}
	return domain.KeyResult{Key: join(rc.ClientID, rc.Path)}, nil
}

// ByIPAndClient combina endereço remoto e identificador do cliente, útil para
// clientes públicos atrás de NAT.
func ByIPAndClient(rc domain.RequestContext) (domain.KeyResult, error) {
	if rc.ClientID == "" {
		return domain.KeyResult{}, domain.ErrMissingClientID
	}
	return domain.KeyResult{Key: join(rc.RemoteIP, rc.ClientID)}, nil
}

// BySubjectAndClient combina subject e cliente para cenários multi-tenant.
func BySubjectAndClient(rc domain.RequestContext) (domain.KeyResult, error) {
	if rc.SubjectID == "" {
		return domain.KeyResult{}, domain.ErrMissingSubjectID
	}
	if rc.ClientID == "" {
		return domain.KeyResult{}, domain.ErrMissingClientID
	}
	return domain.KeyResult{Key: join(rc.SubjectID, rc.ClientID)}, nil
}

// ByIPAndSubjectAndClient combina endereço remoto, subject e cliente.
func ByIPAndSubjectAndClient(rc domain.RequestContext) (domain.KeyResult, error) {
	if rc.SubjectID == "" {
		return domain.KeyResult{}, domain.ErrMissingSubjectID
	}
	if rc.ClientID == "" {
		return domain.KeyResult{}, domain.ErrMissingClientID
	}
	return domain.KeyResult{Key: join(rc.RemoteIP, rc.SubjectID, rc.ClientID)}, nil
}

// Hashed envolve uma estratégia e passa a chave derivada por um hash rápido
// não reversível (xxhash64), produzindo chaves de tamanho fixo resistentes a
// atributos arbitrariamente longos controlados pelo chamador.
//
// O hash NÃO é resistente a colisões no sentido criptográfico; há uma
// probabilidade residual pequena de duas entidades distintas dividirem um
// bucket.
func Hashed(s Strategy) Strategy {
	return func(rc domain.RequestContext) (domain.KeyResult, error) {
		res, err := s(rc)
		if err != nil {
			return domain.KeyResult{}, err
		}
		res.Key = fmt.Sprintf("%016x", xxhash.Sum64String(res.Key))
		return res, nil
	}
}

// strategies é o conjunto fechado de estratégias nomeadas. Combinações
// desconhecidas são rejeitadas na configuração, não na primeira requisição.
var strategies = map[string]Strategy{
	"ip":                ByIP,
	"ip_path":           ByIPAndPath,
	"client":            ByClient,
	"client_path":       ByClientAndPath,
	"ip_client":         ByIPAndClient,
	"subject_client":    BySubjectAndClient,
	"ip_subject_client": ByIPAndSubjectAndClient,
}

// Resolve retorna a estratégia nomeada, opcionalmente na variante hasheada.
func Resolve(name string, hashed bool) (Strategy, error) {
	s, ok := strategies[name]
	if !ok {
		return nil, fmt.Errorf("unknown key strategy: %q", name)
	}
	if hashed {
		return Hashed(s), nil
	}
	return s, nil
}

func join(parts ...string) string {
	return strings.Join(parts, ":")
}
