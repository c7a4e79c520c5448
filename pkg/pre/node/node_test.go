package node_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manishvishnoi2/nucypher/internal/pretest"
	"github.com/manishvishnoi2/nucypher/pkg/pre"
	"github.com/manishvishnoi2/nucypher/pkg/pre/hrac"
	"github.com/manishvishnoi2/nucypher/pkg/pre/umbral"
)

func request(t *testing.T, e *pretest.Env, idx int, label string) (*pre.ReencryptionRequest, *umbral.Capsule) {
	t.Helper()
	res := e.Grant(t, label, 2, time.Hour)
	capsule, _, err := umbral.Encrypt(res.Policy.PolicyKey, []byte("msg"))
	require.NoError(t, err)
	a := res.Map.Assignments[idx]
	return &pre.ReencryptionRequest{
		HRAC:          res.Policy.HRAC,
		Node:          a.Node,
		Capsules:      []*umbral.Capsule{capsule},
		KeyFrag:       a.KeyFrag,
		GrantorKey:    e.Alice.Card().SigningKey,
		DelegatingKey: res.Policy.PolicyKey,
		ReceivingKey:  e.Bob.Card().EncryptingKey,
	}, capsule
}

func TestReencrypt(t *testing.T) {
	e := pretest.New(t, 3)
	req, capsule := request(t, e, 1, "test")

	resp, err := e.Nodes[1].Reencrypt(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Fragments, 1)
	assert.Equal(t, e.Nodes[1].ID(), resp.Node)

	_, err = resp.Fragments[0].Verify(capsule, req.GrantorKey, req.DelegatingKey, req.ReceivingKey)
	require.NoError(t, err)
}

func TestReencryptRejectsMisaddressed(t *testing.T) {
	e := pretest.New(t, 3)
	req, _ := request(t, e, 1, "test")

	// Node 0 cannot open a fragment sealed to node 1.
	req.Node = e.Nodes[0].ID()
	_, err := e.Nodes[0].Reencrypt(context.Background(), req)
	require.ErrorIs(t, err, pre.ErrNodeRejected)

	req.Node = e.Nodes[1].ID()
	_, err = e.Nodes[0].Reencrypt(context.Background(), req)
	require.ErrorIs(t, err, pre.ErrNodeRejected)
}

func TestReencryptRejectsWrongPolicyOrKeys(t *testing.T) {
	e := pretest.New(t, 3)
	req, _ := request(t, e, 0, "test")
	ctx := context.Background()

	other, err := hrac.Derive(e.Alice.Card().SigningKey, e.Bob.Card().EncryptingKey, []byte("other"))
	require.NoError(t, err)
	bad := *req
	bad.HRAC = other
	_, err = e.Nodes[0].Reencrypt(ctx, &bad)
	require.ErrorIs(t, err, pre.ErrNodeRejected)

	bad = *req
	bad.ReceivingKey = e.Alice.Card().EncryptingKey
	_, err = e.Nodes[0].Reencrypt(ctx, &bad)
	require.ErrorIs(t, err, pre.ErrNodeRejected)

	bad = *req
	bad.GrantorKey = e.Bob.Card().SigningKey
	_, err = e.Nodes[0].Reencrypt(ctx, &bad)
	require.ErrorIs(t, err, pre.ErrNodeRejected)
}

func TestReencryptExpired(t *testing.T) {
	e := pretest.New(t, 2)
	req, _ := request(t, e, 0, "test")
	e.Clock.Advance(time.Hour)
	_, err := e.Nodes[0].Reencrypt(context.Background(), req)
	require.ErrorIs(t, err, pre.ErrExpired)
}

func TestReencryptCancelled(t *testing.T) {
	e := pretest.New(t, 2)
	req, _ := request(t, e, 0, "test")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Nodes[0].Reencrypt(ctx, req)
	require.ErrorIs(t, err, context.Canceled)
}
