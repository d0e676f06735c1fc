package credential

import (
	"time"
)

const (
	SecretTypePassword = "password"
	SecretTypeAPIToken = "api_token"
	SecretTypeSSHKey   = "ssh_key"
)

const (
	SSHAlgorithmEd25519 = "ed25519"
	SSHAlgorithmRSA     = "rsa"
	SSHAlgorithmECDSA   = "ecdsa"
)

// SentinelLogin is stored in the login column for secret types that carry no
// real account identity (api_token, ssh_key).
const SentinelLogin = "-"

const DefaultSSHPort = 22

const (
	ChangeTypeCreate  = "create"
	ChangeTypeUpdate  = "update"
	ChangeTypeDisable = "disable"
	ChangeTypeEnable  = "enable"
)

type Credential struct {
	ID             int64     `json:"id" gorm:"primaryKey"`
	UserID         int64     `json:"user_id" gorm:"column:user_id;not null"`
	ServiceID      int64     `json:"service_id" gorm:"column:service_id;not null"`
	SecretType     string    `json:"secret_type" gorm:"column:secret_type;default:password"`
	Login          string    `json:"login"`
	Secret         string    `json:"-" gorm:"column:secret"`
	Notes          string    `json:"notes"`
	SSHHost        string    `json:"ssh_host,omitempty" gorm:"column:ssh_host"`
	SSHPort        int       `json:"ssh_port,omitempty" gorm:"column:ssh_port;default:22"`
	SSHAlgorithm   string    `json:"ssh_algorithm,omitempty" gorm:"column:ssh_algorithm"`
	SSHPublicKey   string    `json:"ssh_public_key,omitempty" gorm:"column:ssh_public_key"`
	SSHFingerprint string    `json:"ssh_fingerprint,omitempty" gorm:"column:ssh_fingerprint"`
	SecretFilename string    `json:"secret_filename,omitempty" gorm:"column:secret_filename"`
	IsActive       bool      `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedAt      time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (Credential) TableName() string {
	return "credentials"
}

func (c *Credential) IsSSHKey() bool {
	return c.SecretType == SecretTypeSSHKey
}

// KeyFilename is the name offered when SSH key material is downloaded as a
// file. Falls back to a name derived from the algorithm when the key was
// pasted rather than uploaded.
func (c *Credential) KeyFilename() string {
	if c.SecretFilename != "" {
		return c.SecretFilename
	}
	return "id_" + c.SSHAlgorithm
}

func ValidSecretType(t string) bool {
	return t == SecretTypePassword || t == SecretTypeAPIToken || t == SecretTypeSSHKey
}

func ValidSSHAlgorithm(a string) bool {
	return a == SSHAlgorithmEd25519 || a == SSHAlgorithmRSA || a == SSHAlgorithmECDSA
}

// CredentialVersion is an append-only history row written on every
// create/update/disable of the parent credential.
type CredentialVersion struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	CredentialID int64     `json:"credential_id" gorm:"column:credential_id;not null;uniqueIndex:idx_credential_version"`
	Version      int       `json:"version" gorm:"not null;uniqueIndex:idx_credential_version"`
	Login        string    `json:"login"`
	Secret       string    `json:"-" gorm:"column:secret"`
	Notes        string    `json:"notes"`
	ChangeType   string    `json:"change_type" gorm:"column:change_type"`
	ChangedByID  *int64    `json:"changed_by_id" gorm:"column:changed_by_id"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
}

func (CredentialVersion) TableName() string {
	return "credential_versions"
}
