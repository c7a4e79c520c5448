package pre

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/manishvishnoi2/nucypher/pkg/pre/hrac"
	"github.com/manishvishnoi2/nucypher/pkg/pre/umbral"
)

func mustSK(t *testing.T) *umbral.SecretKey {
	t.Helper()
	sk, err := umbral.GenerateSecretKey()
	require.NoError(t, err)
	return sk
}

type fixture struct {
	delegating, receiving, grantor, node *umbral.SecretKey
	kfrag                                *umbral.KeyFrag
	id                                   hrac.HRAC
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{delegating: mustSK(t), receiving: mustSK(t), grantor: mustSK(t), node: mustSK(t)}
	kfrags, err := umbral.GenerateKeyFrags(&umbral.KeyFragParams{
		Delegating: f.delegating,
		Receiving:  f.receiving.PublicKey(),
		Signer:     umbral.NewSigner(f.grantor),
		Threshold:  1,
		NodeIDs:    [][]byte{[]byte("0xnode")},
	})
	require.NoError(t, err)
	f.kfrag = kfrags[0]
	f.id, err = hrac.Derive(f.grantor.PublicKey(), f.receiving.PublicKey(), []byte("label"))
	require.NoError(t, err)
	return f
}

func TestSealedKeyFrag(t *testing.T) {
	f := newFixture(t)
	exp := time.Now().Add(time.Hour).Round(0)
	sealed, err := SealKeyFrag(f.node.PublicKey(), &KeyFragGrant{HRAC: f.id, Expiration: exp, KeyFrag: f.kfrag})
	require.NoError(t, err)

	decoded, err := SealedKeyFragFromBytes(sealed.Bytes())
	require.NoError(t, err)

	g, err := decoded.Open(f.node)
	require.NoError(t, err)
	require.True(t, g.HRAC.Equal(f.id))
	require.True(t, g.Expiration.Equal(exp))
	require.NoError(t, g.KeyFrag.Verify(f.grantor.PublicKey(), f.delegating.PublicKey(), f.receiving.PublicKey()))

	_, err = decoded.Open(f.receiving)
	require.Error(t, err)
}

func TestReencryptionRequestCodec(t *testing.T) {
	f := newFixture(t)
	sealed, err := SealKeyFrag(f.node.PublicKey(), &KeyFragGrant{HRAC: f.id, Expiration: time.Now().Add(time.Hour), KeyFrag: f.kfrag})
	require.NoError(t, err)
	c1, _, err := umbral.Encrypt(f.delegating.PublicKey(), []byte("a"))
	require.NoError(t, err)
	c2, _, err := umbral.Encrypt(f.delegating.PublicKey(), []byte("b"))
	require.NoError(t, err)

	req := &ReencryptionRequest{
		HRAC:          f.id,
		Node:          "0xnode",
		Capsules:      []*umbral.Capsule{c1, c2},
		KeyFrag:       sealed,
		GrantorKey:    f.grantor.PublicKey(),
		DelegatingKey: f.delegating.PublicKey(),
		ReceivingKey:  f.receiving.PublicKey(),
	}
	got, err := ReencryptionRequestFromBytes(req.Bytes())
	require.NoError(t, err)
	require.Equal(t, req.Node, got.Node)
	require.Len(t, got.Capsules, 2)
	require.Equal(t, c2.ID(), got.Capsules[1].ID())
	require.True(t, got.ReceivingKey.Equal(req.ReceivingKey))

	_, err = ReencryptionRequestFromBytes([]byte{0x0a, 0x00})
	require.ErrorIs(t, err, ErrInvalidRequest)

	cf, err := umbral.Reencrypt(c1, f.kfrag)
	require.NoError(t, err)
	resp := &ReencryptionResponse{Node: "0xnode", Fragments: []*umbral.CapsuleFrag{cf}}
	gotResp, err := ReencryptionResponseFromBytes(resp.Bytes())
	require.NoError(t, err)
	require.Len(t, gotResp.Fragments, 1)
	_, err = gotResp.Fragments[0].Verify(c1, f.grantor.PublicKey(), f.delegating.PublicKey(), f.receiving.PublicKey())
	require.NoError(t, err)
}
