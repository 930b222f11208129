package secrets

import (
	"errors"
	"strings"
	"time"
)

// Provider names a secret backend
type Provider string

const (
	ProviderNone  Provider = ""
	ProviderVault Provider = "vault"
	ProviderAWS   Provider = "aws"
	ProviderGCP   Provider = "gcp"
	ProviderFile  Provider = "file"
)

var (
	ErrProviderNotConfigured = errors.New("secrets: provider not configured")
	ErrInvalidReference      = errors.New("secrets: invalid reference")
	ErrKeyNotFound           = errors.New("secrets: key not found")
)

// Reference locates one secret. Raw form: [provider://][mount::]path[@version][#key]
type Reference struct {
	Provider Provider
	Mount    string
	Path     string
	Version  string
	Key      string
}

// ParseReference parses the raw reference form
func ParseReference(raw string) (Reference, error) {
	var ref Reference
	s := strings.TrimSpace(raw)
	if s == "" {
		return ref, ErrInvalidReference
	}

	if i := strings.Index(s, "://"); i > 0 {
		ref.Provider = Provider(s[:i])
		s = s[i+3:]
	}
	if i := strings.LastIndex(s, "#"); i >= 0 {
		ref.Key = strings.TrimSpace(s[i+1:])
		s = s[:i]
	}
	if i := strings.LastIndex(s, "@"); i >= 0 {
		ref.Version = strings.TrimSpace(s[i+1:])
		s = s[:i]
	}
	if i := strings.Index(s, "::"); i >= 0 {
		ref.Mount = strings.Trim(s[:i], "/ ")
		s = s[i+2:]
	}

	ref.Path = strings.Trim(strings.TrimSpace(s), "/")
	if ref.Path == "" {
		return ref, ErrInvalidReference
	}
	return ref, nil
}

func (r Reference) cacheKey() string {
	var sb strings.Builder
	sb.WriteString(r.Mount)
	sb.WriteString("::")
	sb.WriteString(r.Path)
	sb.WriteString("@")
	sb.WriteString(r.Version)
	return sb.String()
}

// Secret is a resolved payload. Single-value secrets are stored under "value".
type Secret struct {
	Data      map[string]string
	Version   string
	UpdatedAt time.Time
}

// Value returns the entry for key, or the only entry when key is empty
func (s Secret) Value(key string) (string, bool) {
	if key == "" {
		if v, ok := s.Data["value"]; ok {
			return v, v != ""
		}
		if len(s.Data) == 1 {
			for _, v := range s.Data {
				return v, v != ""
			}
		}
		return "", false
	}
	v, ok := s.Data[key]
	return v, ok && v != ""
}

func (s Secret) clone() Secret {
	out := s
	out.Data = make(map[string]string, len(s.Data))
	for k, v := range s.Data {
		out.Data[k] = v
	}
	return out
}
