package azure

import "strings"

// ParseResourceGroup extracts the resource group name from an ARM resource ID
// like /subscriptions/<id>/resourceGroups/<rg>/providers/...
// It returns "" for tenant-level IDs that carry no resource group.
func ParseResourceGroup(resourceID string) string {
	return idSegment(resourceID, "resourcegroups")
}

// ParseSubscriptionID extracts the subscription ID from an ARM resource ID.
func ParseSubscriptionID(resourceID string) string {
	return idSegment(resourceID, "subscriptions")
}

func idSegment(resourceID, segment string) string {
	parts := strings.Split(strings.Trim(resourceID, "/"), "/")
	for i := 0; i+1 < len(parts); i += 2 {
		if strings.EqualFold(parts[i], segment) {
			return parts[i+1]
		}
	}
	return ""
}
