package domain

import (
	"fmt"
	"time"
)

// Kind is the role an identity authenticates as.
type Kind string

const (
	KindCustomer Kind = "customer"
	KindVendor   Kind = "vendor"
)

// Kinds lists every identity kind in a stable order.
var Kinds = []Kind{KindCustomer, KindVendor}

// ParseKind validates a kind received from the UI or from storage.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown identity kind %q", s)
	}
	return k, nil
}

// Valid reports whether k is customer or vendor.
func (k Kind) Valid() bool {
	return k == KindCustomer || k == KindVendor
}

// Other returns the opposite kind.
func (k Kind) Other() Kind {
	if k == KindCustomer {
		return KindVendor
	}
	return KindCustomer
}

func (k Kind) String() string { return string(k) }

// TokenPair is the credential pair issued by the backend.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Empty reports whether no access token is present.
func (t TokenPair) Empty() bool {
	return t.AccessToken == ""
}

// Profile is the backend's userData for a logged in account.
type Profile struct {
	ID        string `json:"_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Image     string `json:"image,omitempty"`
	StoreName string `json:"storeName,omitempty"`
}

// Identity is an authenticated session of one kind.
type Identity struct {
	Kind    Kind      `json:"kind"`
	Profile Profile   `json:"profile"`
	Tokens  TokenPair `json:"-"`

	// Subject and ExpiresAt come from the access token's claims when it is a
	// JWT. They are informational; the backend is the verifier.
	Subject   string    `json:"subject,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// Expired reports whether the access token carried an expiry that has passed.
func (i Identity) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}
