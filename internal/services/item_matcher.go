package services

import "golang-storefront-backend/internal/models"

// FindCartLine returns the id of the first line whose effective identity equals
// target and whose attributes match. Missing attribute keys compare as "".
// ok is false when nothing matches.
func FindCartLine(items []models.CartItem, target string, attributes map[string]string) (string, bool) {
	for _, item := range items {
		if item.EffectiveID() != target {
			continue
		}
		if attributesEqual(item.Attributes, attributes) {
			return item.ID.String(), true
		}
	}
	return "", false
}

func attributesEqual(a, b map[string]string) bool {
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	for k, v := range b {
		if a[k] != v {
			return false
		}
	}
	return true
}
