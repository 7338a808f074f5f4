// Package asset holds the read-side model of inventory items owned by the
// asset-management collaborator. AETIM never writes to this model; it is
// populated by a read-through cache in front of the collaborator's API.
package asset

import "github.com/google/uuid"

// Product is an application/OS/hardware reference carried by an Asset, used
// as the right-hand side of correlation (C6) matching.
type Product struct {
	Name    string
	Version string
}

// Asset is an inventory item as read from the asset-management collaborator.
type Asset struct {
	ID                 uuid.UUID
	Hostname           string
	IPs                []string
	OperatingSystem    string
	Owner              string
	SensitivityWeight  float64
	CriticalityWeight  float64
	Products           []Product
}
