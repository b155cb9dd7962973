package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/appointment"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/audit"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/directory"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/directory/memory"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/domain"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/gate"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/ledger"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/notify"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/registration"
	id "github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/domain"
)

var signingKey = []byte("test-signing-key")

type nullEnqueuer struct{}

func (nullEnqueuer) Enqueue(context.Context, notify.Message) {}

type apiFixture struct {
	store  directory.Client
	server *httptest.Server
	auth   *Authenticator
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	store := memory.NewClient()
	logger := slog.New(slog.DiscardHandler)
	auditPub := audit.NewPublisher(audit.NewMemoryStore())

	controller := gate.NewController(
		store, ledger.New(store), appointment.NewMatcher(store),
		nullEnqueuer{}, auditPub, nil, logger,
	)
	workflow := registration.NewWorkflow(store, nullEnqueuer{}, auditPub, logger)
	auth := NewAuthenticator(signingKey)

	router := NewRouter(
		NewGateHandler(controller, logger),
		NewRegistrationHandler(workflow, auth, logger),
	)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &apiFixture{store: store, server: server, auth: auth}
}

func (f *apiFixture) seedVehicle(t *testing.T, plateRaw string) {
	t.Helper()
	plate, err := id.ParsePlate(plateRaw)
	require.NoError(t, err)
	require.NoError(t, directory.NewVehicles(f.store).Insert(context.Background(), domain.VehicleRecord{
		ID: "v-" + plateRaw, Plate: plate, Make: "Toyota", Model: "Hilux",
	}))
}

func (f *apiFixture) post(t *testing.T, path, token string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, f.server.URL+path, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (f *apiFixture) approverToken(t *testing.T) string {
	t.Helper()
	token, err := f.auth.IssueToken("jefe1", domain.RoleAdmin, time.Hour, time.Now())
	require.NoError(t, err)
	return token
}

func TestGateEntryAndState(t *testing.T) {
	f := newAPI(t)
	f.seedVehicle(t, "ABC123")

	resp := f.post(t, "/gate/entry", "", MovementRequest{Payload: "abc123", Reason: "diagnóstico"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entry := decodeBody[MovementResponse](t, resp)
	assert.True(t, entry.Allowed)
	assert.True(t, entry.Inside)
	assert.Equal(t, "ABC123", entry.Plate)
	assert.NotEmpty(t, entry.RecordID)

	stateResp, err := http.Get(f.server.URL + "/gate/vehicles/abc123/state")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, stateResp.StatusCode)
	state := decodeBody[StateResponse](t, stateResp)
	assert.True(t, state.Inside)
	assert.True(t, state.VehicleKnown)
	assert.Equal(t, "entry", state.LastKind)
}

func TestGateEntryDenialIsHTTP200(t *testing.T) {
	f := newAPI(t)
	f.seedVehicle(t, "ABC123")

	resp := f.post(t, "/gate/entry", "", MovementRequest{Payload: "ABC123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = f.post(t, "/gate/entry", "", MovementRequest{Payload: "ABC123"})
	require.Equal(t, http.StatusOK, resp.StatusCode, "a denial is a result, not an HTTP error")
	denial := decodeBody[MovementResponse](t, resp)
	assert.False(t, denial.Allowed)
	assert.Equal(t, "already inside", denial.Reason)
}

func TestGateExitWithoutEntry(t *testing.T) {
	f := newAPI(t)
	f.seedVehicle(t, "ABC123")

	resp := f.post(t, "/gate/exit", "", MovementRequest{Payload: "ABC123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	denial := decodeBody[MovementResponse](t, resp)
	assert.False(t, denial.Allowed)
	assert.Equal(t, "no prior entry", denial.Reason)
}

func TestGateScannedPayload(t *testing.T) {
	f := newAPI(t)
	f.seedVehicle(t, "ABC123")

	resp := f.post(t, "/gate/entry", "", MovementRequest{
		Payload: "https://taller.example.cl/vehiculo/ABC123",
		Scanned: true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entry := decodeBody[MovementResponse](t, resp)
	assert.True(t, entry.Allowed)
	assert.Equal(t, "ABC123", entry.Plate)
}

func TestGateUnknownVehicle(t *testing.T) {
	f := newAPI(t)

	resp := f.post(t, "/gate/entry", "", MovementRequest{Payload: "ZZ99ZZ"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRegistrationFlowOverHTTP(t *testing.T) {
	f := newAPI(t)

	resp := f.post(t, "/registrations", "", SubmitRequest{
		RUT: "11.111.111-1", FirstName: "Ana", LastName: "Rojas",
		Email: "ana@example.cl", JobTitle: "Guardia de Turno",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	pending := decodeBody[PendingResponse](t, resp)
	assert.Equal(t, "11111111-1", pending.RUT)

	// The queue requires an approver role.
	listReq, err := http.NewRequest(http.MethodGet, f.server.URL+"/registrations/pending", nil)
	require.NoError(t, err)
	unauth, err := f.server.Client().Do(listReq)
	require.NoError(t, err)
	unauth.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, unauth.StatusCode)

	token := f.approverToken(t)
	listReq, err = http.NewRequest(http.MethodGet, f.server.URL+"/registrations/pending", nil)
	require.NoError(t, err)
	listReq.Header.Set("Authorization", "Bearer "+token)
	listResp, err := f.server.Client().Do(listReq)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, listResp.StatusCode)
	queue := decodeBody[[]PendingResponse](t, listResp)
	require.Len(t, queue, 1)

	approveResp := f.post(t, "/registrations/"+pending.ID+"/approve", token, struct{}{})
	require.Equal(t, http.StatusOK, approveResp.StatusCode)
	approved := decodeBody[ApproveResponse](t, approveResp)
	assert.True(t, approved.Approved)
	assert.Equal(t, "guard", approved.Role)
	assert.NotEmpty(t, approved.OneTimeSecret)

	again := f.post(t, "/registrations/"+pending.ID+"/approve", token, struct{}{})
	require.Equal(t, http.StatusOK, again.StatusCode)
	noop := decodeBody[ApproveResponse](t, again)
	assert.False(t, noop.Approved, "second approval is a no-op")
	assert.Empty(t, noop.OneTimeSecret)
}

func TestApproverRouteRejectsWrongRole(t *testing.T) {
	f := newAPI(t)
	token, err := f.auth.IssueToken("chofer1", domain.RoleDriver, time.Hour, time.Now())
	require.NoError(t, err)

	resp := f.post(t, "/registrations/whatever/approve", token, struct{}{})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestDuplicateRegistrationOverHTTP(t *testing.T) {
	f := newAPI(t)
	body := SubmitRequest{RUT: "11.111.111-1", Email: "a@b.cl", JobTitle: "Chofer"}

	resp := f.post(t, "/registrations", "", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = f.post(t, "/registrations", "", body)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var envelope map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, "conflict", envelope["error"])
}

func TestHealthz(t *testing.T) {
	f := newAPI(t)
	resp, err := http.Get(f.server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newAPI(t)
	resp, err := http.Get(f.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
