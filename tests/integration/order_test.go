//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"
)

func createCustomer(t *testing.T, name string) int64 {
	t.Helper()

	resp := doPost(t, "/api/customers", map[string]string{
		"name":         name,
		"contact_info": "071 555 0100",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create customer: expected 201, got %d", resp.StatusCode)
	}
	return decodeJSON[map[string]int64](t, resp)["customer_id"]
}

func advanceOrder(t *testing.T, userID, orderID int64, status string) *http.Response {
	t.Helper()
	return doJSON(t, http.MethodPatch, fmt.Sprintf("/api/orders/%d/status", orderID), map[string]any{
		"user_id": userID,
		"status":  status,
	})
}

func TestOrderLifecycle(t *testing.T) {
	session := login(t)
	productID := createProduct(t, "IT Ginger Beer 330ml", "Soft Drink")
	receiveBatch(t, session.UserID, productID, "IT-ORD-1", 20, "2027-05-01", "7.00", "14.00")
	customerID := createCustomer(t, "IT Corner Cafe")

	resp := doPost(t, "/api/orders", map[string]any{
		"customer_id": customerID,
		"items":       []map[string]any{{"product_id": productID, "quantity": 6}},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create order: expected 201, got %d", resp.StatusCode)
	}
	orderID := decodeJSON[map[string]int64](t, resp)["order_id"]

	get := doGet(t, fmt.Sprintf("/api/orders/%d", orderID))
	defer get.Body.Close()
	order := decodeJSON[orderResponse](t, get)
	if order.Status != "Received" {
		t.Fatalf("new order status: got %q, want Received", order.Status)
	}

	// Orders reserve nothing: stock stays put until a sale happens.
	if batches := listBatches(t, productID); batches[0].Quantity != 20 {
		t.Errorf("stock after order: got %d, want 20", batches[0].Quantity)
	}

	for _, status := range []string{"Ready to Pack", "Ready to Distribute", "Completed"} {
		adv := advanceOrder(t, session.UserID, orderID, status)
		if adv.StatusCode != http.StatusNoContent {
			t.Fatalf("advance to %q: expected 204, got %d", status, adv.StatusCode)
		}
		adv.Body.Close()
	}

	// No going back once completed.
	back := advanceOrder(t, session.UserID, orderID, "Received")
	defer back.Body.Close()
	if back.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("backwards transition: expected 422, got %d", back.StatusCode)
	}
}

func TestAdvanceOrder_SkipsStages(t *testing.T) {
	session := login(t)
	productID := createProduct(t, "IT Rooibos Iced Tea 500ml", "Soft Drink")
	receiveBatch(t, session.UserID, productID, "IT-ORD-2", 12, "2027-04-01", "6.00", "12.00")
	customerID := createCustomer(t, "IT Beach Kiosk")

	resp := doPost(t, "/api/orders", map[string]any{
		"customer_id": customerID,
		"items":       []map[string]any{{"product_id": productID, "quantity": 2}},
	})
	defer resp.Body.Close()
	orderID := decodeJSON[map[string]int64](t, resp)["order_id"]

	adv := advanceOrder(t, session.UserID, orderID, "Completed")
	defer adv.Body.Close()
	if adv.StatusCode != http.StatusNoContent {
		t.Fatalf("skip to Completed: expected 204, got %d", adv.StatusCode)
	}
}
