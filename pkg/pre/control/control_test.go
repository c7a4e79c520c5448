package control_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manishvishnoi2/nucypher/internal/pretest"
	"github.com/manishvishnoi2/nucypher/pkg/pre/control"
	"github.com/manishvishnoi2/nucypher/pkg/pre/hrac"
	"github.com/manishvishnoi2/nucypher/pkg/pre/identity"
	"github.com/manishvishnoi2/nucypher/pkg/pre/messagekit"
	"github.com/manishvishnoi2/nucypher/pkg/pre/mocknet"
	"github.com/manishvishnoi2/nucypher/pkg/pre/retrieval"
	"github.com/manishvishnoi2/nucypher/pkg/pre/treasuremap"
	"github.com/manishvishnoi2/nucypher/pkg/pre/umbral"
)

var label = base64.StdEncoding.EncodeToString([]byte("test"))

type testServer struct {
	env    *pretest.Env
	srv    *httptest.Server
	policy *umbral.PublicKey
	enrico *umbral.Signer
}

func newTestServer(t *testing.T, nodes int) *testServer {
	t.Helper()
	e := pretest.New(t, nodes)
	bob, err := retrieval.NewGrantee(e.Bob, e.Maps, e.Net, retrieval.WithClock(e.Clock.Now))
	require.NoError(t, err)
	policyKey, err := e.Grantor.PolicyKey([]byte("test"))
	require.NoError(t, err)
	originator, err := identity.Generate()
	require.NoError(t, err)
	enc, err := messagekit.NewEncryptor(policyKey, originator.Signer(), 0)
	require.NoError(t, err)

	s := control.New(
		control.WithGrantor(e.Grantor, control.StaticDirectory(e.Cards())),
		control.WithGrantee(bob),
		control.WithEncryptor(enc),
	)
	ts := &testServer{env: e, srv: httptest.NewServer(s.Handler()), policy: policyKey, enrico: originator.Signer()}
	t.Cleanup(ts.srv.Close)
	return ts
}

func hexKey(pk *umbral.PublicKey) string { return hex.EncodeToString(pk.Bytes()) }

func (ts *testServer) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, method, ts.srv.URL+path, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func (ts *testServer) createBody(m, n int) map[string]any {
	return map[string]any{
		"bob_encrypting_key": hexKey(ts.env.Bob.Card().EncryptingKey),
		"label":              label,
		"m":                  m,
		"n":                  n,
	}
}

func (ts *testServer) grantBody(m, n int, ttl time.Duration) map[string]any {
	b := ts.createBody(m, n)
	b["expiration_time"] = ts.env.Clock.Now().Add(ttl).Format(time.RFC3339)
	return b
}

func (ts *testServer) joinBody() map[string]any {
	return map[string]any{
		"label":                label,
		"alice_signing_pubkey": hexKey(ts.env.Alice.Card().SigningKey),
	}
}

func (ts *testServer) retrieveBody(kits ...string) map[string]any {
	return map[string]any{
		"label":                     label,
		"policy_encrypting_pubkey":  hexKey(ts.policy),
		"alice_signing_pubkey":      hexKey(ts.env.Alice.Card().SigningKey),
		"message_kits":              kits,
		"datasource_signing_pubkey": hexKey(ts.enrico.VerifyingKey()),
	}
}

func (ts *testServer) encrypt(t *testing.T, msg []byte) string {
	t.Helper()
	resp, body := ts.do(t, http.MethodPost, "/encrypt_message", map[string]any{
		"message": base64.StdEncoding.EncodeToString(msg),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var out struct {
		Result struct {
			MessageKit string `json:"message_kit"`
			Signature  string `json:"signature"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.NotEmpty(t, out.Result.Signature)
	return out.Result.MessageKit
}

func without(body map[string]any, key string) map[string]any {
	out := make(map[string]any, len(body))
	for k, v := range body {
		if k != key {
			out[k] = v
		}
	}
	return out
}

func (ts *testServer) requireEmptyStore(t *testing.T) {
	t.Helper()
	keys, err := ts.env.Store.Keys(nil)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func errorKind(t *testing.T, body []byte) string {
	t.Helper()
	var out struct {
		Error     string `json:"error"`
		Kind      string `json:"kind"`
		RequestID string `json:"request_id"`
	}
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	require.NotEmpty(t, out.Error)
	require.NotEmpty(t, out.RequestID)
	return out.Kind
}

func TestEndToEnd(t *testing.T) {
	ts := newTestServer(t, 3)

	resp, body := ts.do(t, http.MethodPut, "/create_policy", ts.createBody(2, 3))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "Policy created!", string(body))
	assert.NotEmpty(t, resp.Header.Get(control.RequestIDHeader))

	resp, body = ts.do(t, http.MethodPut, "/grant", ts.grantBody(2, 3, time.Hour))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var granted struct {
		Result struct {
			TreasureMap string `json:"treasure_map"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(body, &granted))
	raw, err := base64.StdEncoding.DecodeString(granted.Result.TreasureMap)
	require.NoError(t, err)
	enc, err := treasuremap.EncryptedMapFromBytes(raw)
	require.NoError(t, err)
	require.NoError(t, enc.Verify(ts.env.Alice.Card().SigningKey))
	want, err := hrac.Derive(ts.env.Alice.Card().SigningKey, ts.env.Bob.Card().EncryptingKey, []byte("test"))
	require.NoError(t, err)
	assert.True(t, enc.HRAC.Equal(want), "map is published under the grantor/grantee/label HRAC")

	resp, body = ts.do(t, http.MethodPost, "/join_policy", ts.joinBody())
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "Policy joined!", string(body))

	require.NoError(t, ts.env.Net.SetBehavior(ts.env.Nodes[0].ID(), mocknet.Behavior{Offline: true}))
	kits := []string{ts.encrypt(t, []byte("first")), ts.encrypt(t, []byte("second"))}
	resp, body = ts.do(t, http.MethodPost, "/retrieve", ts.retrieveBody(kits...))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var retrieved struct {
		Result struct {
			Plaintext []string `json:"plaintext"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(body, &retrieved))
	require.Len(t, retrieved.Result.Plaintext, 2)
	for i, want := range []string{"first", "second"} {
		got, err := base64.StdEncoding.DecodeString(retrieved.Result.Plaintext[i])
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}
}

func TestRetrieveJoinsImplicitly(t *testing.T) {
	ts := newTestServer(t, 3)
	resp, body := ts.do(t, http.MethodPut, "/grant", ts.grantBody(2, 3, time.Hour))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	req := ts.retrieveBody()
	req["message_kit"] = ts.encrypt(t, []byte("single"))
	resp, out := ts.do(t, http.MethodPost, "/retrieve", req)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(out))
	assert.Contains(t, string(out), base64.StdEncoding.EncodeToString([]byte("single")))
}

func TestMethodBinding(t *testing.T) {
	ts := newTestServer(t, 3)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/create_policy"},
		{http.MethodPost, "/create_policy"},
		{http.MethodPost, "/grant"},
		{http.MethodPut, "/join_policy"},
		{http.MethodGet, "/retrieve"},
		{http.MethodPut, "/encrypt_message"},
	} {
		resp, _ := ts.do(t, tc.method, tc.path, nil)
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, "%s %s", tc.method, tc.path)
	}
	resp, _ := ts.do(t, http.MethodGet, "/no_such_thing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMalformedRequestsDoNotMutate(t *testing.T) {
	ts := newTestServer(t, 3)
	badKey := ts.createBody(2, 3)
	badKey["bob_encrypting_key"] = "zz"
	badLabel := ts.createBody(2, 3)
	badLabel["label"] = "%%%"
	badThreshold := ts.createBody(4, 3)
	unknown := ts.createBody(2, 3)
	unknown["surprise"] = true
	noExpiry := ts.createBody(2, 3)

	join := ts.joinBody()
	retrieve := ts.retrieveBody(ts.encrypt(t, []byte("kit")))

	type request struct {
		method, path string
		body         any
	}
	put := func(path string, body any) request { return request{http.MethodPut, path, body} }
	post := func(path string, body any) request { return request{http.MethodPost, path, body} }

	for name, tc := range map[string]request{
		"not json":                   put("/create_policy", "{not json"),
		"trailing data":              put("/create_policy", `{"m":1} {"m":2}`),
		"bad key":                    put("/create_policy", badKey),
		"bad label":                  put("/create_policy", badLabel),
		"m greater than n":           put("/create_policy", badThreshold),
		"unknown field":              put("/create_policy", unknown),
		"missing expiry":             put("/grant", noExpiry),
		"wrong type":                 put("/grant", `{"m":"two"}`),
		"join not json":              post("/join_policy", "{not json"),
		"join without label":         post("/join_policy", without(join, "label")),
		"join without grantor":       post("/join_policy", without(join, "alice_signing_pubkey")),
		"retrieve not json":          post("/retrieve", "[1, 2"),
		"retrieve without label":     post("/retrieve", without(retrieve, "label")),
		"retrieve without policy":    post("/retrieve", without(retrieve, "policy_encrypting_pubkey")),
		"retrieve without grantor":   post("/retrieve", without(retrieve, "alice_signing_pubkey")),
		"retrieve without kits":      post("/retrieve", without(retrieve, "message_kits")),
		"retrieve without sender":    post("/retrieve", without(retrieve, "datasource_signing_pubkey")),
		"encrypt not json":           post("/encrypt_message", "message"),
		"encrypt without message":    post("/encrypt_message", map[string]any{}),
		"encrypt message not b64":    post("/encrypt_message", map[string]any{"message": "%%%"}),
		"encrypt message wrong type": post("/encrypt_message", map[string]any{"message": 7}),
	} {
		t.Run(name, func(t *testing.T) {
			resp, body := ts.do(t, tc.method, tc.path, tc.body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))
			assert.Equal(t, "validation", errorKind(t, body))
		})
	}

	ts.requireEmptyStore(t)
}

func TestEncryptEmptyMessage(t *testing.T) {
	ts := newTestServer(t, 3)
	resp, body := ts.do(t, http.MethodPut, "/grant", ts.grantBody(2, 3, time.Hour))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	kit := ts.encrypt(t, []byte{})
	resp, body = ts.do(t, http.MethodPost, "/retrieve", ts.retrieveBody(kit))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"result":{"plaintext":[""]}}`, string(body))
}

func TestErrorStatuses(t *testing.T) {
	ts := newTestServer(t, 3)

	resp, body := ts.do(t, http.MethodPost, "/join_policy", ts.joinBody())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "policy_state", errorKind(t, body))

	resp, body = ts.do(t, http.MethodPut, "/grant", ts.grantBody(2, 3, time.Hour))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	kit := ts.encrypt(t, []byte("status"))

	for _, n := range ts.env.Nodes[:2] {
		require.NoError(t, ts.env.Net.SetBehavior(n.ID(), mocknet.Behavior{Offline: true}))
	}
	resp, body = ts.do(t, http.MethodPost, "/retrieve", ts.retrieveBody(kit))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "5", resp.Header.Get("Retry-After"))
	assert.Equal(t, "availability", errorKind(t, body))
	for _, n := range ts.env.Nodes {
		require.NoError(t, ts.env.Net.SetBehavior(n.ID(), mocknet.Behavior{}))
	}

	raw, err := base64.StdEncoding.DecodeString(kit)
	require.NoError(t, err)
	mk, err := messagekit.FromBytes(raw)
	require.NoError(t, err)
	mk.Ciphertext[0] ^= 0x01
	resp, body = ts.do(t, http.MethodPost, "/retrieve", ts.retrieveBody(base64.StdEncoding.EncodeToString(mk.Bytes())))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "verification", errorKind(t, body))

	other := ts.retrieveBody(kit)
	other["policy_encrypting_pubkey"] = hexKey(ts.env.Bob.Card().EncryptingKey)
	resp, _ = ts.do(t, http.MethodPost, "/retrieve", other)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	ts.env.Clock.Advance(time.Hour)
	resp, body = ts.do(t, http.MethodPost, "/retrieve", ts.retrieveBody(kit))
	assert.Equal(t, http.StatusGone, resp.StatusCode)
	assert.Equal(t, "policy_state", errorKind(t, body))
}

func TestGrantNeedsEnoughNodes(t *testing.T) {
	ts := newTestServer(t, 2)
	resp, body := ts.do(t, http.MethodPut, "/grant", ts.grantBody(2, 3, time.Hour))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "availability", errorKind(t, body))
	ts.requireEmptyStore(t)
}

func TestGrantPastExpiration(t *testing.T) {
	ts := newTestServer(t, 3)
	resp, _ := ts.do(t, http.MethodPut, "/grant", ts.grantBody(2, 3, -time.Hour))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	ts.requireEmptyStore(t)

	resp, _ = ts.do(t, http.MethodPut, "/grant", ts.grantBody(2, 3, 0))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "expiration equal to now is already expired")
	ts.requireEmptyStore(t)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, control.StatusOf(&control.ValidationError{Field: "m", Reason: "bad"}))
	assert.Equal(t, http.StatusInternalServerError, control.StatusOf(io.ErrUnexpectedEOF))
}
