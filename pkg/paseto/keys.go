package pasetotoken

import (
	"strings"

	paseto "aidanwoods.dev/go-paseto"

	"github.com/Alijeyrad/counsel_backend/config"
)

type Mode string

const (
	ModeLocal  Mode = "local"  // v4.local, one shared key
	ModePublic Mode = "public" // v4.public, ed25519 pair
)

// Keys is the key material for one mode. The API and the token CLI both
// issue and verify, so public mode always carries the secret half.
type Keys struct {
	Mode      Mode
	Symmetric *paseto.V4SymmetricKey
	Secret    *paseto.V4AsymmetricSecretKey
}

// KeysFromConfig decodes the hex keys configured for the active mode.
func KeysFromConfig(p config.PasetoConfig) (Keys, error) {
	switch mode := Mode(p.Mode); mode {
	case ModeLocal:
		k, err := paseto.V4SymmetricKeyFromHex(strings.TrimSpace(p.LocalKeyHex))
		if err != nil {
			return Keys{}, ErrConfig{Msg: "local_key_hex: " + err.Error()}
		}
		return Keys{Mode: mode, Symmetric: &k}, nil
	case ModePublic:
		sk, err := paseto.NewV4AsymmetricSecretKeyFromHex(strings.TrimSpace(p.SecretKeyHex))
		if err != nil {
			return Keys{}, ErrConfig{Msg: "secret_key_hex: " + err.Error()}
		}
		return Keys{Mode: mode, Secret: &sk}, nil
	default:
		return Keys{}, ErrConfig{Msg: "mode must be local or public, got " + string(p.Mode)}
	}
}

// GenerateKeys creates fresh key material for mode.
func GenerateKeys(mode Mode) (Keys, error) {
	switch mode {
	case ModeLocal:
		k := paseto.NewV4SymmetricKey()
		return Keys{Mode: mode, Symmetric: &k}, nil
	case ModePublic:
		sk := paseto.NewV4AsymmetricSecretKey()
		return Keys{Mode: mode, Secret: &sk}, nil
	default:
		return Keys{}, ErrConfig{Msg: "mode must be local or public, got " + string(mode)}
	}
}

// Hex returns the value to put in config: the symmetric key in local mode,
// the secret key in public mode.
func (k Keys) Hex() string {
	if k.Mode == ModeLocal {
		return k.Symmetric.ExportHex()
	}
	return k.Secret.ExportHex()
}
