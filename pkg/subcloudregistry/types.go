// Package subcloudregistry is the logical-record side of the HTTP
// control-plane façade spec.md declares out of scope, reduced to
// create/get/list/delete of subcloud records, their management-state,
// availability and software-version updates, and per-endpoint sync status
// (spec.md §3). Within this module, main.go lists the records at startup
// and StatusTracker writes endpoint statuses; nothing here calls Create,
// Delete or the Update* methods.
//
// Grounded on original_source/dcmanager/manager/subcloud_manager.py,
// which owns this same lifecycle in the python implementation.
package subcloudregistry

import "time"

// ManagementState is whether the system controller is actively managing
// this subcloud.
type ManagementState string

const (
	ManagementManaged   ManagementState = "managed"
	ManagementUnmanaged ManagementState = "unmanaged"
)

// Availability is whether the subcloud is currently reachable.
type Availability string

const (
	AvailabilityOnline  Availability = "online"
	AvailabilityOffline Availability = "offline"
)

// SyncStatus is a per-(subcloud, endpoint-type) convergence status
// (spec.md §3 EndpointStatus).
type SyncStatus string

const (
	SyncStatusUnknown    SyncStatus = "unknown"
	SyncStatusInSync     SyncStatus = "in-sync"
	SyncStatusOutOfSync  SyncStatus = "out-of-sync"
)

// Subcloud is the registry record for one managed remote cloud.
type Subcloud struct {
	RegionName         string
	SoftwareVersion     string
	ManagementState     ManagementState
	Availability        Availability
	ManagementSubnet    string
	ManagementStartIP   string
	ManagementEndIP     string
	SystemControllerGatewayIP string
	CreatedAt           time.Time
}

// SyncPermitted implements the invariant
// "(management_state = managed) => sync permitted" (spec.md §3).
func (s Subcloud) SyncPermitted() bool {
	return s.ManagementState == ManagementManaged
}

// Deletable implements "destroyed by delete-subcloud (only allowed when
// unmanaged and offline)" (spec.md §3).
func (s Subcloud) Deletable() bool {
	return s.ManagementState == ManagementUnmanaged && s.Availability == AvailabilityOffline
}

// EndpointStatus is the per-(subcloud, endpoint-type) sync status row.
type EndpointStatus struct {
	RegionName   string
	EndpointType string
	SyncStatus   SyncStatus
}

// AcceptStatusUpdate implements the invariant that sync status updates
// are silently dropped on unmanaged subclouds unless the incoming status
// is "unknown" (spec.md §3).
func (s Subcloud) AcceptStatusUpdate(newStatus SyncStatus) bool {
	if s.SyncPermitted() {
		return true
	}
	return newStatus == SyncStatusUnknown
}
