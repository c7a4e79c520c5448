package control

import (
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/manishvishnoi2/nucypher/pkg/pre/hrac"
	"github.com/manishvishnoi2/nucypher/pkg/pre/policy"
	"github.com/manishvishnoi2/nucypher/pkg/pre/retrieval"
	"github.com/manishvishnoi2/nucypher/pkg/pre/treasuremap"
)

const (
	msgPolicyCreated = "Policy created!"
	msgPolicyJoined  = "Policy joined!"
)

func (s *Server) createPolicy(w http.ResponseWriter, r *http.Request) {
	var req CreatePolicyRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	params, err := req.params()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if _, err := s.grantor.CreatePolicy(r.Context(), params); err != nil {
		s.fail(w, r, err)
		return
	}
	writeText(w, msgPolicyCreated)
}

type grantResult struct {
	TreasureMap string `json:"treasure_map"`
}

// grant samples n nodes from the directory, creates the policy when it does
// not exist yet and grants it to them. Nothing is stored unless the nodes
// and the expiration pass the grant checks.
func (s *Server) grant(w http.ResponseWriter, r *http.Request) {
	var req GrantRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	params, expiration, err := req.params()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	nodes, err := sampleNodes(s.nodes, params.N)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.grantor.CheckGrant(params.N, nodes, expiration); err != nil {
		s.fail(w, r, err)
		return
	}
	pol, err := s.grantor.CreatePolicy(r.Context(), params)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.grantor.Grant(r.Context(), &policy.GrantParams{
		Policy:     pol,
		Nodes:      nodes,
		Expiration: expiration,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Result: grantResult{
		TreasureMap: base64.StdEncoding.EncodeToString(res.EncryptedMap.Bytes()),
	}})
}

func (s *Server) joinPolicy(w http.ResponseWriter, r *http.Request) {
	var req JoinPolicyRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	grantor, label, err := req.params()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if _, err := s.grantee.JoinPolicy(r.Context(), grantor, label); err != nil {
		s.fail(w, r, err)
		return
	}
	writeText(w, msgPolicyJoined)
}

type retrieveResult struct {
	Plaintext []string `json:"plaintext"`
}

func (s *Server) retrieve(w http.ResponseWriter, r *http.Request) {
	var req RetrieveRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := req.params()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	m, err := s.joinedMap(r, p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.grantee.Retrieve(r.Context(), &retrieval.RetrieveParams{
		Map:         m,
		MessageKits: p.kits,
		Originator:  p.originator,
	})
	if err != nil {
		s.log.Info(r.Context(), "retrieval failed", "attempt", res.AttemptID.String(), "state", res.State.String())
		s.fail(w, r, err)
		return
	}
	out := retrieveResult{Plaintext: make([]string, len(res.Plaintexts))}
	for i, pt := range res.Plaintexts {
		out.Plaintext[i] = base64.StdEncoding.EncodeToString(pt)
	}
	writeJSON(w, http.StatusOK, envelope{Result: out})
}

// joinedMap returns the grantee's map for the request's policy, joining it
// first when needed.
func (s *Server) joinedMap(r *http.Request, p *retrieveParams) (*treasuremap.Map, error) {
	id, err := hrac.Derive(p.grantor, s.grantee.Card().EncryptingKey, p.label)
	if err != nil {
		return nil, invalid("label", "%v", err)
	}
	m, ok := s.grantee.Joined(id)
	if !ok {
		if m, err = s.grantee.JoinPolicy(r.Context(), p.grantor, p.label); err != nil {
			return nil, err
		}
	}
	if !m.PolicyKey.Equal(p.policyKey) {
		return nil, invalid("policy_encrypting_pubkey", "does not match policy %s", id)
	}
	return m, nil
}

type encryptResult struct {
	MessageKit string `json:"message_kit"`
	Signature  string `json:"signature"`
}

func (s *Server) encryptMessage(w http.ResponseWriter, r *http.Request) {
	var req EncryptMessageRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	msg, err := req.params()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	kit, err := s.encryptor.Encrypt(msg)
	if err != nil {
		s.fail(w, r, fmt.Errorf("encrypt: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, envelope{Result: encryptResult{
		MessageKit: base64.StdEncoding.EncodeToString(kit.Bytes()),
		Signature:  base64.StdEncoding.EncodeToString(kit.Signature.Bytes()),
	}})
}
