package domain

import (
	"fmt"
	"strings"

	"github.com/cofi-market/cofi-deploy/internal/domain/models"
)

// ParseNetwork validates a network name
func ParseNetwork(name string) (models.Network, error) {
	n := models.Network(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range models.Networks() {
		if n == known {
			return n, nil
		}
	}
	return "", fmt.Errorf("%w: %q (expected one of devnet, sepolia, mainnet)", ErrUnknownNetwork, name)
}
