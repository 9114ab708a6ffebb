package order

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/appetiteclub/kiosk/pkg/enums/principal"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/authn"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func routerAs(h *Handler, p *authn.Principal) chi.Router {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if p != nil {
				req = req.WithContext(authn.WithPrincipal(req.Context(), *p))
			}
			next.ServeHTTP(w, req)
		})
	})
	h.RegisterRoutes(r)
	return r
}

func call(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestHandlerCheckoutStatuses(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.service, nil)
	kiosk := f.kioskPrincipal(f.kiosk)
	body := `{"checkoutMethod":"sumUp","items":[{"productId":"` + f.coffee.ID.String() + `","quantity":1}]}`

	if rec := call(routerAs(h, nil), http.MethodPost, "/orders", body); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", rec.Code)
	}

	rec := call(routerAs(h, &kiosk), http.MethodPost, "/orders", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "tx-") {
		t.Error("response leaks the client transaction id")
	}

	f.creator.CreateCheckoutFunc = func(ctx context.Context, readerID string, amount int64, reference string) (string, bool) {
		return "", false
	}
	if rec := call(routerAs(h, &kiosk), http.MethodPost, "/orders", body); rec.Code != http.StatusBadGateway {
		t.Errorf("reader down status = %d, want 502", rec.Code)
	}

	manual := `{"checkoutMethod":"manual","items":[{"productId":"` + f.coffee.ID.String() + `","quantity":1}]}`
	if rec := call(routerAs(h, &kiosk), http.MethodPost, "/orders", manual); rec.Code != http.StatusForbidden {
		t.Errorf("kiosk manual status = %d, want 403", rec.Code)
	}
	if rec := call(routerAs(h, &kiosk), http.MethodPost, "/orders", `{"checkoutMethod":"later"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty order status = %d, want 400", rec.Code)
	}

	ghost := authn.Principal{Type: principal.Kiosk, ID: uuid.New()}
	later := `{"checkoutMethod":"later","items":[{"productId":"` + f.coffee.ID.String() + `","quantity":1}]}`
	rec = call(routerAs(h, &ghost), http.MethodPost, "/orders", later)
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "Kiosk not found") {
		t.Errorf("deleted kiosk status = %d, body = %s, want 404 Kiosk not found", rec.Code, rec.Body.String())
	}
}

func TestHandlerKioskSeesOwnOrders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	h := NewHandler(f.service, nil)

	mine, _ := f.service.Checkout(ctx, f.kioskPrincipal(f.kiosk), CheckoutRequest{CheckoutMethod: "later", Items: f.coffees(1)})
	theirs, _ := f.service.Checkout(ctx, f.kioskPrincipal(f.bare), CheckoutRequest{CheckoutMethod: "later", Items: f.coffees(1)})

	kiosk := f.kioskPrincipal(f.kiosk)
	r := routerAs(h, &kiosk)

	rec := call(r, http.MethodGet, "/orders", ``)
	var list struct {
		Data []Public `json:"data"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list.Data) != 1 || list.Data[0].ID != mine.ID.String() {
		t.Errorf("list = %+v", list.Data)
	}
	if rec := call(r, http.MethodGet, "/orders/"+theirs.ID.String(), ``); rec.Code != http.StatusNotFound {
		t.Errorf("foreign order status = %d, want 404", rec.Code)
	}
	if rec := call(r, http.MethodPatch, "/orders/"+mine.ID.String()+"/status", `{"status":"confirmed"}`); rec.Code != http.StatusForbidden {
		t.Errorf("kiosk status update = %d, want 403", rec.Code)
	}

	admin := routerAs(h, &f.admin)
	if rec := call(admin, http.MethodPatch, "/orders/"+mine.ID.String()+"/status", `{"status":"confirmed"}`); rec.Code != http.StatusOK {
		t.Errorf("admin status update = %d", rec.Code)
	}
	if rec := call(admin, http.MethodPost, "/orders/"+mine.ID.String()+"/refund", ``); rec.Code != http.StatusConflict {
		t.Errorf("refund pending status = %d, want 409", rec.Code)
	}
	if rec := call(admin, http.MethodDelete, "/orders?before=nope", ``); rec.Code != http.StatusBadRequest {
		t.Errorf("cleanup bad before = %d, want 400", rec.Code)
	}
	if rec := call(admin, http.MethodDelete, "/orders?before=2100-01-01T00:00:00Z", ``); rec.Code != http.StatusOK {
		t.Errorf("cleanup status = %d", rec.Code)
	}
}
