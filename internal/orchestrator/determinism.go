package orchestrator

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/asteria-studio/normalize-core/internal/constants"
	"github.com/asteria-studio/normalize-core/internal/sidecar"
)

// configHash canonicalizes cfg via its JSON encoding (map keys sort
// lexicographically, struct fields keep declaration order) and returns its
// hex SHA-256 digest. Two runs over byte-identical config produce an
// identical digest regardless of process or machine.
func configHash(cfg any) (string, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// determinism builds the report's determinism fingerprint for cfg.
func determinism(cfg any) (sidecar.Determinism, error) {
	hash, err := configHash(cfg)
	if err != nil {
		return sidecar.Determinism{}, err
	}
	return sidecar.Determinism{AppVersion: constants.AppVersion, ConfigHash: hash}, nil
}
