package credential

import (
	"strings"
	"time"

	"github.com/frahmantamala/credential-vault/internal"
	credentialDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/credential"
)

type CreateCredentialDTO struct {
	UserID         int64  `json:"user_id"`
	ServiceID      int64  `json:"service_id"`
	SecretType     string `json:"secret_type"`
	Login          string `json:"login"`
	Secret         string `json:"secret"`
	Notes          string `json:"notes"`
	SSHHost        string `json:"ssh_host"`
	SSHPort        *int   `json:"ssh_port"`
	SSHAlgorithm   string `json:"ssh_algorithm"`
	SSHPublicKey   string `json:"ssh_public_key"`
	SSHFingerprint string `json:"ssh_fingerprint"`
	SecretFilename string `json:"secret_filename"`
}

// Validate normalizes per-type fields: non-password types take the sentinel
// login, ssh defaults are filled in, and non-ssh types have their ssh fields
// cleared rather than rejected.
func (dto *CreateCredentialDTO) Validate() error {
	if dto.ServiceID == 0 {
		return internal.NewValidationFieldError("service_id", "service_id is required", internal.ErrCodeMissingField)
	}
	if dto.Secret == "" {
		return internal.NewValidationFieldError("secret", "secret is required", internal.ErrCodeMissingField)
	}

	if dto.SecretType == "" {
		dto.SecretType = credentialDatamodel.SecretTypePassword
	}
	if !credentialDatamodel.ValidSecretType(dto.SecretType) {
		return internal.NewValidationFieldError("secret_type", "secret_type must be password, api_token or ssh_key", internal.ErrCodeValidationFailed)
	}

	switch dto.SecretType {
	case credentialDatamodel.SecretTypePassword:
		dto.Login = strings.TrimSpace(dto.Login)
		if dto.Login == "" {
			return internal.NewValidationFieldError("login", "login is required for password credentials", internal.ErrCodeMissingField)
		}
		dto.clearSSHFields()
	case credentialDatamodel.SecretTypeAPIToken:
		dto.Login = credentialDatamodel.SentinelLogin
		dto.clearSSHFields()
	case credentialDatamodel.SecretTypeSSHKey:
		dto.Login = credentialDatamodel.SentinelLogin
		if dto.SSHPort == nil {
			port := credentialDatamodel.DefaultSSHPort
			dto.SSHPort = &port
		}
		if *dto.SSHPort < 1 || *dto.SSHPort > 65535 {
			return internal.NewValidationFieldError("ssh_port", "ssh_port must be between 1 and 65535", internal.ErrCodeInvalidPort)
		}
		if dto.SSHAlgorithm == "" {
			dto.SSHAlgorithm = credentialDatamodel.SSHAlgorithmEd25519
		}
		if !credentialDatamodel.ValidSSHAlgorithm(dto.SSHAlgorithm) {
			return internal.NewValidationFieldError("ssh_algorithm", "ssh_algorithm must be ed25519, rsa or ecdsa", internal.ErrCodeInvalidAlgorithm)
		}
	}

	return nil
}

func (dto *CreateCredentialDTO) clearSSHFields() {
	dto.SSHHost = ""
	dto.SSHPort = nil
	dto.SSHAlgorithm = ""
	dto.SSHPublicKey = ""
	dto.SSHFingerprint = ""
	dto.SecretFilename = ""
}

// UpdateCredentialDTO is a partial update; secret_type is immutable and its
// presence in the payload is rejected outright.
type UpdateCredentialDTO struct {
	SecretType     *string `json:"secret_type"`
	Login          *string `json:"login"`
	Secret         *string `json:"secret"`
	Notes          *string `json:"notes"`
	SSHHost        *string `json:"ssh_host"`
	SSHPort        *int    `json:"ssh_port"`
	SSHAlgorithm   *string `json:"ssh_algorithm"`
	SSHPublicKey   *string `json:"ssh_public_key"`
	SSHFingerprint *string `json:"ssh_fingerprint"`
	SecretFilename *string `json:"secret_filename"`
}

func (dto *UpdateCredentialDTO) Validate() error {
	if dto.SecretType != nil {
		return internal.NewValidationFieldError("secret_type", "secret_type cannot be changed", internal.ErrCodeImmutableField)
	}
	if dto.SSHPort != nil && (*dto.SSHPort < 1 || *dto.SSHPort > 65535) {
		return internal.NewValidationFieldError("ssh_port", "ssh_port must be between 1 and 65535", internal.ErrCodeInvalidPort)
	}
	if dto.SSHAlgorithm != nil && !credentialDatamodel.ValidSSHAlgorithm(*dto.SSHAlgorithm) {
		return internal.NewValidationFieldError("ssh_algorithm", "ssh_algorithm must be ed25519, rsa or ecdsa", internal.ErrCodeInvalidAlgorithm)
	}
	return nil
}

// DisclosureResponse carries the secret in clear together with the moment
// the caller should treat it as stale again.
type DisclosureResponse struct {
	Secret    string    `json:"secret"`
	ExpiresAt time.Time `json:"expires_at"`
}

var (
	ErrCredentialNotFound = internal.NewNotFoundError("credential not found", internal.ErrCodeCredentialNotFound)
	ErrCredentialInactive = internal.NewConflictError("credential is disabled", internal.ErrCodeCredentialInactive)
)
