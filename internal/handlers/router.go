package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/markjakearzadon/zapshift-gobackend/internal/auth"
)

// Router bundles everything the HTTP surface needs.
type Router struct {
	Parcels        *ParcelHandler
	Users          *UserHandler
	Riders         *RiderHandler
	Checkout       *CheckoutHandler
	Payments       *PaymentHandler
	Verifier       *auth.Verifier
	Metrics        http.Handler
	Logger         *zap.Logger
	RequestTimeout time.Duration
}

func (rt Router) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(RequestLogger(rt.Logger), Timeout(rt.RequestTimeout))
	authed := RequireAuth(rt.Verifier)

	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("zap is shifting shifting"))
	}).Methods(http.MethodGet, http.MethodHead)
	if rt.Metrics != nil {
		router.Handle("/metrics", rt.Metrics).Methods(http.MethodGet)
	}

	router.HandleFunc("/users", rt.Users.CreateUser).Methods(http.MethodPost)

	router.HandleFunc("/parcels", rt.Parcels.GetParcels).Methods(http.MethodGet)
	router.HandleFunc("/parcels", rt.Parcels.CreateParcel).Methods(http.MethodPost)
	router.HandleFunc("/parcels/{id}", rt.Parcels.GetParcel).Methods(http.MethodGet)
	router.HandleFunc("/parcels/{id}", rt.Parcels.DeleteParcel).Methods(http.MethodDelete)

	router.HandleFunc("/create-checkout-session", rt.Checkout.CreateCheckoutSession).Methods(http.MethodPost)
	router.HandleFunc("/payment-success", rt.Payments.ConfirmPayment).Methods(http.MethodPatch, http.MethodGet)

	router.Handle("/payments", authed(http.HandlerFunc(rt.Payments.GetPayments))).Methods(http.MethodGet)
	router.Handle("/payments/{transactionId}/reconcile", authed(http.HandlerFunc(rt.Payments.Reconcile))).Methods(http.MethodPost)

	router.HandleFunc("/riders", rt.Riders.GetRiders).Methods(http.MethodGet)
	router.HandleFunc("/riders", rt.Riders.CreateRider).Methods(http.MethodPost)

	return CORS(router)
}
