package db

import "testing"

func testSerialConfig(name string, enabled bool) *SerialConfig {
	return &SerialConfig{
		Name:        name,
		PortPath:    "/dev/ttyACM0",
		BaudRate:    9600,
		DataBits:    8,
		StopBits:    1,
		Parity:      "N",
		Enabled:     enabled,
		Description: "bench roller",
		SensorModel: "roller-hall-v1",
	}
}

// TestSerialConfigCRUD runs a full create/read/update/delete cycle.
func TestSerialConfigCRUD(t *testing.T) {
	database := newTestDB(t)

	id, err := database.CreateSerialConfig(testSerialConfig("bench", true))
	if err != nil {
		t.Fatalf("CreateSerialConfig failed: %v", err)
	}

	got, err := database.GetSerialConfig(int(id))
	if err != nil {
		t.Fatalf("GetSerialConfig failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetSerialConfig returned nil for existing config")
	}
	if got.Name != "bench" || got.BaudRate != 9600 || !got.Enabled {
		t.Errorf("unexpected config: %+v", got)
	}
	if got.CreatedAt == 0 || got.UpdatedAt == 0 {
		t.Error("timestamps not populated")
	}

	got.BaudRate = 115200
	got.Description = "updated"
	if err := database.UpdateSerialConfig(got); err != nil {
		t.Fatalf("UpdateSerialConfig failed: %v", err)
	}

	updated, err := database.GetSerialConfig(got.ID)
	if err != nil {
		t.Fatalf("GetSerialConfig after update failed: %v", err)
	}
	if updated.BaudRate != 115200 || updated.Description != "updated" {
		t.Errorf("update not persisted: %+v", updated)
	}

	if err := database.DeleteSerialConfig(got.ID); err != nil {
		t.Fatalf("DeleteSerialConfig failed: %v", err)
	}

	gone, err := database.GetSerialConfig(got.ID)
	if err != nil {
		t.Fatalf("GetSerialConfig after delete failed: %v", err)
	}
	if gone != nil {
		t.Error("config still present after delete")
	}
}

// TestGetSerialConfigMissing returns nil, nil for unknown IDs.
func TestGetSerialConfigMissing(t *testing.T) {
	database := newTestDB(t)

	got, err := database.GetSerialConfig(9999)
	if err != nil {
		t.Fatalf("GetSerialConfig failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing config, got %+v", got)
	}
}

// TestUpdateSerialConfigMissing errors for unknown IDs.
func TestUpdateSerialConfigMissing(t *testing.T) {
	database := newTestDB(t)

	cfg := testSerialConfig("ghost", false)
	cfg.ID = 4242
	if err := database.UpdateSerialConfig(cfg); err == nil {
		t.Error("expected error updating missing config")
	}
	if err := database.DeleteSerialConfig(4242); err == nil {
		t.Error("expected error deleting missing config")
	}
}

// TestGetEnabledSerialConfigs filters on the enabled flag.
func TestGetEnabledSerialConfigs(t *testing.T) {
	database := newTestDB(t)

	if _, err := database.CreateSerialConfig(testSerialConfig("active", true)); err != nil {
		t.Fatalf("CreateSerialConfig failed: %v", err)
	}
	if _, err := database.CreateSerialConfig(testSerialConfig("spare", false)); err != nil {
		t.Fatalf("CreateSerialConfig failed: %v", err)
	}

	enabled, err := database.GetEnabledSerialConfigs()
	if err != nil {
		t.Fatalf("GetEnabledSerialConfigs failed: %v", err)
	}
	if len(enabled) != 1 || enabled[0].Name != "active" {
		t.Errorf("enabled configs = %+v, want just 'active'", enabled)
	}

	all, err := database.GetSerialConfigs()
	if err != nil {
		t.Fatalf("GetSerialConfigs failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("got %d configs, want 2", len(all))
	}
}

// TestSetSerialConfigEnabled enforces a single active configuration.
func TestSetSerialConfigEnabled(t *testing.T) {
	database := newTestDB(t)

	firstID, err := database.CreateSerialConfig(testSerialConfig("first", true))
	if err != nil {
		t.Fatalf("CreateSerialConfig failed: %v", err)
	}
	secondID, err := database.CreateSerialConfig(testSerialConfig("second", false))
	if err != nil {
		t.Fatalf("CreateSerialConfig failed: %v", err)
	}

	if err := database.SetSerialConfigEnabled(int(secondID), true); err != nil {
		t.Fatalf("SetSerialConfigEnabled failed: %v", err)
	}

	enabled, err := database.GetEnabledSerialConfigs()
	if err != nil {
		t.Fatalf("GetEnabledSerialConfigs failed: %v", err)
	}
	if len(enabled) != 1 || enabled[0].ID != int(secondID) {
		t.Errorf("enabled = %+v, want just second (%d)", enabled, secondID)
	}

	first, err := database.GetSerialConfig(int(firstID))
	if err != nil {
		t.Fatalf("GetSerialConfig failed: %v", err)
	}
	if first.Enabled {
		t.Error("first config should have been disabled")
	}

	if err := database.SetSerialConfigEnabled(777, true); err == nil {
		t.Error("expected error enabling missing config")
	}
}
