package domain

import "errors"

var (
	// ErrMissingClientID indica que uma estratégia de chave escopada por
	// cliente foi usada em uma requisição sem identidade de cliente. É um
	// erro de uso (classe programador), não uma condição por requisição.
	ErrMissingClientID = errors.New("client identity is required by the configured key strategy")

	// ErrMissingSubjectID é o equivalente para estratégias escopadas por
	// subject.
	ErrMissingSubjectID = errors.New("subject identity is required by the configured key strategy")
)

func IsMissingIdentityError(err error) bool {
	return errors.Is(err, ErrMissingClientID) || errors.Is(err, ErrMissingSubjectID)
}
