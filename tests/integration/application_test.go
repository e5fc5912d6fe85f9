//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"
)

func submitApplication(t *testing.T, name, email, password string) applicationResponse {
	t.Helper()

	resp := doPost(t, "/api/applyRestaurant", map[string]any{
		"restaurantName": name,
		"email":          email,
		"address":        "12 Market St",
		"password":       password,
	})
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusCreated)

	return decodeJSON[applicationResponse](t, resp)
}

func TestApplicationApproval_NewVendor(t *testing.T) {
	admin := login(t, seedAdminEmail, seedAdminPassword)
	email := uniqueEmail("vendor")

	app := submitApplication(t, "Integration Pasta", email, "pasta123")
	if app.Status != "PENDING" {
		t.Fatalf("status: got %q, want PENDING", app.Status)
	}

	// Only admins review applications.
	customer := signup(t, uniqueEmail("nosy"), "secret123")
	denied := do(t, http.MethodGet, "/api/admin/applications/pending", nil, customer.Token)
	defer denied.Body.Close()
	expectStatus(t, denied, http.StatusForbidden)

	resp := do(t, http.MethodPost, fmt.Sprintf("/api/admin/applications/%d/approve", app.ID), nil, admin.Token)
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	approved := decodeJSON[approvalResponse](t, resp)
	if approved.Merged {
		t.Error("expected a new vendor account, got merged")
	}
	if approved.Vendor.Role != "VENDOR" {
		t.Errorf("vendor role: got %q, want VENDOR", approved.Vendor.Role)
	}
	if approved.Restaurant.OwnerID == nil || *approved.Restaurant.OwnerID != approved.Vendor.ID {
		t.Errorf("restaurant owner: got %v, want %d", approved.Restaurant.OwnerID, approved.Vendor.ID)
	}

	// A second approval is rejected.
	again := do(t, http.MethodPost, fmt.Sprintf("/api/admin/applications/%d/approve", app.ID), nil, admin.Token)
	defer again.Body.Close()
	expectStatus(t, again, http.StatusConflict)

	// The vendor signs in with the application password and manages the menu.
	vendor := login(t, email, "pasta123")

	own := do(t, http.MethodGet, "/api/vendor/restaurant", nil, vendor.Token)
	defer own.Body.Close()
	expectStatus(t, own, http.StatusOK)
	if r := decodeJSON[restaurantResponse](t, own); r.ID != approved.Restaurant.ID {
		t.Errorf("vendor restaurant: got %d, want %d", r.ID, approved.Restaurant.ID)
	}

	created := do(t, http.MethodPost, "/api/vendor/menu-items", map[string]any{
		"name":     "Penne Arrabbiata",
		"price":    "11.50",
		"category": "Pasta",
		"isVeg":    true,
	}, vendor.Token)
	defer created.Body.Close()
	expectStatus(t, created, http.StatusCreated)

	item := decodeJSON[menuItemResponse](t, created)
	if item.RestaurantID != approved.Restaurant.ID {
		t.Errorf("menu item restaurant: got %d, want %d", item.RestaurantID, approved.Restaurant.ID)
	}

	// Editing another restaurant's item is forbidden.
	_, menu := firstOpenRestaurant(t)
	foreign := do(t, http.MethodPut, fmt.Sprintf("/api/vendor/menu-items/%d", menu[0].ID), map[string]any{
		"name":  "Hijacked",
		"price": "1.00",
	}, vendor.Token)
	defer foreign.Body.Close()
	expectStatus(t, foreign, http.StatusForbidden)
}

func TestApplicationApproval_MergesCustomer(t *testing.T) {
	admin := login(t, seedAdminEmail, seedAdminPassword)
	email := uniqueEmail("merge")

	// The account is registered after the application was filed.
	app := submitApplication(t, "Merged Diner", email, "fromapp1")
	customer := signup(t, email, "original1")

	resp := do(t, http.MethodPost, fmt.Sprintf("/api/admin/applications/%d/approve", app.ID), nil, admin.Token)
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	approved := decodeJSON[approvalResponse](t, resp)
	if !approved.Merged {
		t.Error("expected the existing account to be merged")
	}
	if approved.Vendor.ID != customer.User.ID {
		t.Errorf("vendor id: got %d, want existing user %d", approved.Vendor.ID, customer.User.ID)
	}

	// The merge takes over the application password and promotes the role.
	s := login(t, email, "fromapp1")
	if s.User.Role != "VENDOR" {
		t.Errorf("role after merge: got %q, want VENDOR", s.User.Role)
	}

	old := doPost(t, "/api/auth/login", map[string]any{"email": email, "password": "original1"})
	defer old.Body.Close()
	expectStatus(t, old, http.StatusUnauthorized)
}

func TestApplication_EmailTaken(t *testing.T) {
	email := uniqueEmail("taken")
	signup(t, email, "secret123")

	resp := doPost(t, "/api/applyRestaurant", map[string]any{
		"restaurantName": "Too Late Cafe",
		"email":          email,
		"address":        "1 Side St",
		"password":       "secret123",
	})
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusConflict)
}

func TestApplicationRejection(t *testing.T) {
	admin := login(t, seedAdminEmail, seedAdminPassword)
	app := submitApplication(t, "Rejected Grill", uniqueEmail("reject"), "grill123")

	resp := do(t, http.MethodPost, fmt.Sprintf("/api/admin/applications/%d/reject", app.ID),
		map[string]any{"rejectionReason": "incomplete paperwork"}, admin.Token)
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	got := decodeJSON[applicationResponse](t, resp)
	if got.Status != "REJECTED" {
		t.Errorf("status: got %q, want REJECTED", got.Status)
	}

	approve := do(t, http.MethodPost, fmt.Sprintf("/api/admin/applications/%d/approve", app.ID), nil, admin.Token)
	defer approve.Body.Close()
	expectStatus(t, approve, http.StatusConflict)
}
