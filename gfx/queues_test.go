package gfx_test

import (
	"testing"

	"github.com/devblok/starlight/gfx"
)

func TestIsComplete(t *testing.T) {
	dq := gfx.NewDeviceQueues()
	if dq.IsComplete() {
		t.Fatal("unassigned queues reported complete")
	}

	dq.Graphics = gfx.Assign(0, 0)
	dq.Present = gfx.Assign(0, 0)
	dq.Compute = gfx.Assign(0, 0)
	if dq.IsComplete() {
		t.Error("queues without transfer reported complete")
	}

	dq.Transfer = gfx.Assign(2, 0)
	if !dq.IsComplete() {
		t.Error("fully assigned queues reported incomplete")
	}

	dq.Present = gfx.Assign(-1, 0)
	if dq.IsComplete() {
		t.Error("queues without present reported complete")
	}
}

func TestUniqueFamilies(t *testing.T) {
	dq := gfx.NewDeviceQueues()
	dq.Graphics = gfx.Assign(0, 0)
	dq.Compute = gfx.Assign(0, 0)
	dq.Present = gfx.Assign(1, 0)
	dq.Transfer = gfx.Assign(1, 0)

	if dq.HasUniqueComputeFamily() {
		t.Error("HasUniqueComputeFamily() = true, want false")
	}
	if !dq.HasUniquePresentFamily() {
		t.Error("HasUniquePresentFamily() = false, want true")
	}
	if !dq.HasUniqueTransferFamily() {
		t.Error("HasUniqueTransferFamily() = false, want true")
	}

	dq.CreateUniqueQueueFamilyList()
	fams, counts := dq.UniqueFamilies(), dq.QueueCounts()
	if len(fams) != 2 || fams[0] != 0 || fams[1] != 1 {
		t.Fatalf("UniqueFamilies() = %v, want [0 1]", fams)
	}
	if counts[0] != 1 || counts[1] != 1 {
		t.Errorf("QueueCounts() = %v, want [1 1]", counts)
	}
}

func TestQueueCountFollowsHighestIndex(t *testing.T) {
	dq := gfx.NewDeviceQueues()
	dq.Graphics = gfx.Assign(0, 0)
	dq.Compute = gfx.Assign(0, 1)
	dq.Present = gfx.Assign(0, 0)
	dq.Transfer = gfx.Assign(1, 0)

	dq.CreateUniqueQueueFamilyList()
	if n := dq.QueueCount(0); n != 2 {
		t.Errorf("QueueCount(0) = %d, want 2", n)
	}
	if n := dq.QueueCount(1); n != 1 {
		t.Errorf("QueueCount(1) = %d, want 1", n)
	}
	if n := dq.QueueCount(7); n != 0 {
		t.Errorf("QueueCount(7) = %d, want 0", n)
	}

	families := []gfx.QueueFamily{
		{Caps: gfx.CapGraphics | gfx.CapCompute, QueueCount: 1, Present: true},
		{Caps: gfx.CapTransfer, QueueCount: 1},
	}
	if err := dq.Validate(families); err == nil {
		t.Error("Validate accepted a family with too few queues")
	}
	families[0].QueueCount = 2
	if err := dq.Validate(families); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestFindQueueFamilies(t *testing.T) {
	families := []gfx.QueueFamily{
		{Caps: gfx.CapGraphics | gfx.CapCompute | gfx.CapTransfer, QueueCount: 16, Present: true},
		{Caps: gfx.CapCompute | gfx.CapTransfer, QueueCount: 2},
		{Caps: gfx.CapTransfer, QueueCount: 2},
	}

	dq := gfx.FindQueueFamilies(families, false)
	if !dq.IsComplete() {
		t.Fatalf("FindQueueFamilies() incomplete: %s", dq)
	}
	for _, role := range []gfx.QueueType{gfx.QueueGraphics, gfx.QueuePresent, gfx.QueueCompute, gfx.QueueTransfer} {
		if a := dq.Assignment(role); a.Family() != 0 || a.Index != 0 {
			t.Errorf("%s assigned to %d.%d, want 0.0", role, a.Family(), a.Index)
		}
	}
	if fams := dq.UniqueFamilies(); len(fams) != 1 || dq.QueueCounts()[0] != 1 {
		t.Errorf("unique families %v counts %v", fams, dq.QueueCounts())
	}

	dq = gfx.FindQueueFamilies(families, true)
	if dq.Compute.Family() != 0 || dq.Compute.Index != 1 {
		t.Errorf("compute assigned to %d.%d, want 0.1", dq.Compute.Family(), dq.Compute.Index)
	}
	if dq.Transfer.Index != 2 {
		t.Errorf("transfer index = %d, want 2", dq.Transfer.Index)
	}
	if n := dq.QueueCount(0); n != 3 {
		t.Errorf("QueueCount(0) = %d, want 3", n)
	}
	if err := dq.Validate(families); err != nil {
		t.Error(err)
	}
}

func TestFindQueueFamiliesSeparatePresent(t *testing.T) {
	families := []gfx.QueueFamily{
		{Caps: gfx.CapGraphics | gfx.CapCompute | gfx.CapTransfer, QueueCount: 1},
		{Caps: gfx.CapTransfer, QueueCount: 1, Present: true},
	}
	dq := gfx.FindQueueFamilies(families, true)
	if dq.Present.Family() != 1 || !dq.HasUniquePresentFamily() {
		t.Errorf("present family = %d, want 1", dq.Present.Family())
	}
	if dq.Compute.Index != 0 || dq.Transfer.Index != 0 {
		t.Errorf("single queue family produced indices %d and %d", dq.Compute.Index, dq.Transfer.Index)
	}
}

func TestFindQueueFamiliesIncomplete(t *testing.T) {
	dq := gfx.FindQueueFamilies([]gfx.QueueFamily{{Caps: gfx.CapGraphics, QueueCount: 1}}, false)
	if dq.IsComplete() {
		t.Fatal("family without present reported complete")
	}
	if err := dq.Validate(nil); err == nil {
		t.Error("Validate accepted incomplete queues")
	}
}

func TestZeroValueIsUnassigned(t *testing.T) {
	var dq gfx.DeviceQueues
	if dq.IsComplete() {
		t.Fatal("zero value queues reported complete")
	}
	for _, role := range []gfx.QueueType{gfx.QueueGraphics, gfx.QueuePresent, gfx.QueueCompute, gfx.QueueTransfer} {
		if f := dq.Family(role); f != -1 {
			t.Errorf("zero value %s family = %d, want -1", role, f)
		}
	}
	dq.CreateUniqueQueueFamilyList()
	if fams := dq.UniqueFamilies(); len(fams) != 0 {
		t.Errorf("UniqueFamilies() = %v, want none", fams)
	}

	if a := gfx.Assign(0, 3); !a.Assigned() || a.Family() != 0 || a.Index != 3 {
		t.Errorf("Assign(0, 3) = %d.%d assigned=%v", a.Family(), a.Index, a.Assigned())
	}
}
