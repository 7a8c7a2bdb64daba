package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// SecretPrefix marks issued credentials so they are recognizable in config
// files and leak scanners.
const SecretPrefix = "evs_"

const secretBytes = 32

// IssueRequest describes a credential to mint.
type IssueRequest struct {
	Name               string
	AuthorizedServices []string
	CreatedBy          string
	// TTL of zero issues a credential that never expires.
	TTL time.Duration
}

// Issue mints a new random secret and the record that stores its hash. The
// secret is returned once and cannot be recovered from the record.
func Issue(req IssueRequest, now time.Time) (string, CredentialRecord, error) {
	services := make([]string, 0, len(req.AuthorizedServices))
	for _, s := range req.AuthorizedServices {
		if s = strings.TrimSpace(s); s != "" && !slices.Contains(services, s) {
			services = append(services, s)
		}
	}
	if len(services) == 0 {
		return "", CredentialRecord{}, fmt.Errorf("%w: at least one authorized service is required", ErrInvalidRecord)
	}
	if req.TTL < 0 {
		return "", CredentialRecord{}, fmt.Errorf("%w: negative ttl", ErrInvalidRecord)
	}

	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", CredentialRecord{}, fmt.Errorf("generate secret: %w", err)
	}
	secret := SecretPrefix + base64.RawURLEncoding.EncodeToString(buf)

	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", CredentialRecord{}, fmt.Errorf("generate id: %w", err)
	}

	now = now.UTC()
	rec := CredentialRecord{
		ID:                 "cred_" + strings.ToLower(id.String()),
		CredentialHash:     HashCredential(secret),
		Name:               req.Name,
		AuthorizedServices: services,
		CreatedBy:          req.CreatedBy,
		CreatedAt:          now,
	}
	if req.TTL > 0 {
		exp := now.Add(req.TTL)
		rec.ExpiresAt = &exp
	}
	return secret, rec, nil
}
