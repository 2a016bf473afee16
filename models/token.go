package models

import "time"

// ServiceToken is a third-party OAuth token held on behalf of the user
// (e.g. for a mail or calendar integration). It is never written to the
// local store in the clear; the token store wraps it in an
// [EncryptedEnvelope] first.
type ServiceToken struct {
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken,omitempty"`
	TokenType    string            `json:"tokenType,omitempty"`
	Expiry       time.Time         `json:"expiry,omitzero"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// EncryptedEnvelope is the persisted shape of an encrypted service token.
// All binary fields are base64-encoded (standard encoding).
type EncryptedEnvelope struct {
	ServiceName string           `json:"serviceName"`
	Encrypted   EncryptedPayload `json:"encrypted"`
}

// EncryptedPayload holds the key-derivation salt, the AES-GCM nonce and the
// ciphertext of one envelope.
type EncryptedPayload struct {
	Salt string `json:"salt"`
	IV   string `json:"iv"`
	Data string `json:"data"`
}
