// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import (
	"fmt"
	"sort"
)

// QueueCaps is the capability set of a queue family.
type QueueCaps uint32

const (
	CapGraphics QueueCaps = 1 << iota
	CapCompute
	CapTransfer
)

// QueueFamily describes one hardware queue family.
type QueueFamily struct {
	Caps       QueueCaps
	QueueCount uint32

	// Present reports whether the family can present to the target surface.
	Present bool
}

func (f QueueFamily) supports(q QueueType) bool {
	switch q {
	case QueueGraphics:
		return f.Caps&CapGraphics != 0
	case QueuePresent:
		return f.Present
	case QueueCompute:
		return f.Caps&CapCompute != 0
	case QueueTransfer:
		return f.Caps&CapTransfer != 0
	}
	return false
}

// QueueAssignment is the family and queue index assigned to a role. The
// zero value is unassigned.
type QueueAssignment struct {
	// family index plus one
	family int
	Index  uint32
}

// Assign returns the assignment of queue index on family. A negative family
// leaves the role unassigned.
func Assign(family int, index uint32) QueueAssignment {
	if family < 0 {
		return QueueAssignment{}
	}
	return QueueAssignment{family: family + 1, Index: index}
}

// Family returns the family index, or -1 when unassigned.
func (a QueueAssignment) Family() int {
	return a.family - 1
}

// Assigned reports whether the role has a family.
func (a QueueAssignment) Assigned() bool {
	return a.family > 0
}

// DeviceQueues holds the queue families chosen for each role. The zero value
// has every role unassigned.
type DeviceQueues struct {
	Graphics QueueAssignment
	Present  QueueAssignment
	Compute  QueueAssignment
	Transfer QueueAssignment

	unique []int
	counts []uint32
}

// NewDeviceQueues returns queues with every role unassigned.
func NewDeviceQueues() DeviceQueues {
	return DeviceQueues{}
}

// FindQueueFamilies assigns to every role the first family supporting it.
// With distinct set, roles landing on an already used family take the next
// queue index of that family while it has queues left; otherwise every role
// uses queue 0. The unique family list is computed before returning.
func FindQueueFamilies(families []QueueFamily, distinct bool) DeviceQueues {
	dq := NewDeviceQueues()
	used := make(map[int]uint32)
	for role := QueueGraphics; role < queueTypeCount; role++ {
		for idx, f := range families {
			if !f.supports(role) {
				continue
			}
			a := Assign(idx, 0)
			if distinct && role != QueuePresent {
				if n := used[idx]; n < f.QueueCount {
					a.Index = n
					used[idx] = n + 1
				} else if n > 0 {
					a.Index = n - 1
				}
			}
			dq.set(role, a)
			break
		}
	}
	dq.CreateUniqueQueueFamilyList()
	return dq
}

func (dq *DeviceQueues) set(role QueueType, a QueueAssignment) {
	switch role {
	case QueueGraphics:
		dq.Graphics = a
	case QueuePresent:
		dq.Present = a
	case QueueCompute:
		dq.Compute = a
	case QueueTransfer:
		dq.Transfer = a
	}
}

// Assignment returns the assignment of role.
func (dq *DeviceQueues) Assignment(role QueueType) QueueAssignment {
	switch role {
	case QueueGraphics:
		return dq.Graphics
	case QueuePresent:
		return dq.Present
	case QueueCompute:
		return dq.Compute
	case QueueTransfer:
		return dq.Transfer
	}
	return QueueAssignment{}
}

// Family returns the family index of role, or -1.
func (dq *DeviceQueues) Family(role QueueType) int {
	return dq.Assignment(role).Family()
}

// Index returns the queue index of role within its family.
func (dq *DeviceQueues) Index(role QueueType) uint32 {
	return dq.Assignment(role).Index
}

func (dq *DeviceQueues) roles() [queueTypeCount]QueueAssignment {
	return [queueTypeCount]QueueAssignment{dq.Graphics, dq.Present, dq.Compute, dq.Transfer}
}

// IsComplete reports whether every role has a family.
func (dq *DeviceQueues) IsComplete() bool {
	for _, a := range dq.roles() {
		if !a.Assigned() {
			return false
		}
	}
	return true
}

// HasUniquePresentFamily reports whether presenting uses a family other than
// graphics.
func (dq *DeviceQueues) HasUniquePresentFamily() bool {
	return dq.Present.Family() != dq.Graphics.Family()
}

// HasUniqueComputeFamily reports whether compute uses a family other than
// graphics.
func (dq *DeviceQueues) HasUniqueComputeFamily() bool {
	return dq.Compute.Family() != dq.Graphics.Family()
}

// HasUniqueTransferFamily reports whether transfer uses a family other than
// graphics and compute.
func (dq *DeviceQueues) HasUniqueTransferFamily() bool {
	transfer := dq.Transfer.Family()
	return transfer != dq.Graphics.Family() && transfer != dq.Compute.Family()
}

// CreateUniqueQueueFamilyList computes the distinct assigned families in
// ascending order and the number of queues each must expose: one more than
// the highest queue index any role requests on it.
func (dq *DeviceQueues) CreateUniqueQueueFamilyList() {
	counts := make(map[int]uint32)
	for _, a := range dq.roles() {
		if !a.Assigned() {
			continue
		}
		if n := a.Index + 1; n > counts[a.Family()] {
			counts[a.Family()] = n
		}
	}

	dq.unique = dq.unique[:0]
	for fam := range counts {
		dq.unique = append(dq.unique, fam)
	}
	sort.Ints(dq.unique)

	dq.counts = dq.counts[:0]
	for _, fam := range dq.unique {
		dq.counts = append(dq.counts, counts[fam])
	}
}

// UniqueFamilies returns the families computed by CreateUniqueQueueFamilyList.
func (dq *DeviceQueues) UniqueFamilies() []int {
	return dq.unique
}

// QueueCounts returns, parallel to UniqueFamilies, the number of queues to
// create on each family.
func (dq *DeviceQueues) QueueCounts() []uint32 {
	return dq.counts
}

// QueueCount returns the number of queues needed on family, or zero.
func (dq *DeviceQueues) QueueCount(family int) uint32 {
	for i, f := range dq.unique {
		if f == family {
			return dq.counts[i]
		}
	}
	return 0
}

// Validate checks completeness and that every family exposes the queues
// required of it.
func (dq *DeviceQueues) Validate(families []QueueFamily) error {
	if !dq.IsComplete() {
		return fmt.Errorf("incomplete device queues: graphics=%d present=%d compute=%d transfer=%d",
			dq.Graphics.Family(), dq.Present.Family(), dq.Compute.Family(), dq.Transfer.Family())
	}
	for i, fam := range dq.unique {
		if fam >= len(families) {
			return fmt.Errorf("queue family %d does not exist", fam)
		}
		if have := families[fam].QueueCount; have < dq.counts[i] {
			return fmt.Errorf("queue family %d exposes %d queues, %d required", fam, have, dq.counts[i])
		}
	}
	return nil
}

func (dq DeviceQueues) String() string {
	return fmt.Sprintf("graphics=%d.%d present=%d.%d compute=%d.%d transfer=%d.%d",
		dq.Graphics.Family(), dq.Graphics.Index,
		dq.Present.Family(), dq.Present.Index,
		dq.Compute.Family(), dq.Compute.Index,
		dq.Transfer.Family(), dq.Transfer.Index)
}
