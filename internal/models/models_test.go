package models

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

// assertFieldType checks that a struct field has the expected Go type.
func assertFieldType(t *testing.T, typ reflect.Type, fieldName, expectedType string) {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	got := f.Type.String()
	if got != expectedType {
		t.Errorf("%s.%s type = %q, want %q", typ.Name(), fieldName, got, expectedType)
	}
}

func TestUser_Fields(t *testing.T) {
	typ := reflect.TypeOf(User{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "Email", "uniqueIndex")
	assertGormTag(t, typ, "Email", "not null")
	assertGormTag(t, typ, "Role", "index")

	assertFieldType(t, typ, "ID", "uint")
	assertFieldType(t, typ, "CreatedAt", "time.Time")
}

func TestAgent_Fields(t *testing.T) {
	typ := reflect.TypeOf(Agent{})

	// The agent shares its identity with the user profile.
	assertGormTag(t, typ, "UserID", "primaryKey")
	assertGormTag(t, typ, "UserID", "autoIncrement:false")
	assertGormTag(t, typ, "Status", "default:OFF")
	assertGormTag(t, typ, "Status", "index")
	assertGormTag(t, typ, "User", "foreignKey:UserID")

	assertFieldType(t, typ, "Score", "float64")
	assertFieldType(t, typ, "User", "models.User")
}

func TestRequest_Fields(t *testing.T) {
	typ := reflect.TypeOf(Request{})

	assertGormTag(t, typ, "CustomerID", "not null")
	assertGormTag(t, typ, "CustomerID", "index")
	assertGormTag(t, typ, "AgentID", "index")
	assertGormTag(t, typ, "Status", "index")
	assertGormTag(t, typ, "Message", "type:text")
	assertGormTag(t, typ, "CreatedAt", "index")

	assertFieldType(t, typ, "AgentID", "*uint")
	assertFieldType(t, typ, "CreatedAt", "time.Time")
	assertFieldType(t, typ, "AssignedAt", "*time.Time")
	assertFieldType(t, typ, "ConfirmedAt", "*time.Time")
	assertFieldType(t, typ, "FinishedAt", "*time.Time")
}

func TestRequest_Relations(t *testing.T) {
	typ := reflect.TypeOf(Request{})

	assertGormTag(t, typ, "Customer", "foreignKey:CustomerID")
	assertGormTag(t, typ, "Agent", "foreignKey:AgentID")
	assertGormTag(t, typ, "Agent", "references:UserID")

	assertFieldType(t, typ, "Customer", "models.User")
	assertFieldType(t, typ, "Agent", "*models.Agent")
}

func TestRequest_Active(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{RequestRequested, false},
		{RequestAssigned, true},
		{RequestConfirmed, true},
		{RequestProcessed, false},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			r := Request{Status: tt.status}
			if got := r.Active(); got != tt.want {
				t.Errorf("Active() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNotification_Fields(t *testing.T) {
	typ := reflect.TypeOf(Notification{})

	assertGormTag(t, typ, "UserID", "index")
	assertGormTag(t, typ, "Acknowledged", "default:false")
	assertFieldType(t, typ, "RequestID", "*uint")

	n := Notification{CreatedAt: time.Now()}
	if n.Acknowledged {
		t.Error("new notification should not be acknowledged")
	}
}
