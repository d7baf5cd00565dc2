package raft

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Membership is the part of a node the cluster endpoints need
type Membership interface {
	Leader() bool
	LeaderAddress() string
	AddVoter(id, addr string) error
	RemoveServer(id string) error
}

// Transport carries cluster membership requests between nodes over HTTP
type Transport struct {
	node   Membership
	client *http.Client
}

// NewTransport creates a new Transport
func NewTransport(node Membership) *Transport {
	return &Transport{
		node:   node,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

type joinRequest struct {
	NodeID   string `json:"node_id"`
	NodeAddr string `json:"node_addr,omitempty"`
}

// JoinCluster asks the node serving HTTP at joinAddr to add this node as a voter
func (t *Transport) JoinCluster(ctx context.Context, joinAddr, nodeID, nodeAddr string) error {
	return t.post(ctx, joinAddr, "/raft/join", joinRequest{NodeID: nodeID, NodeAddr: nodeAddr})
}

// LeaveCluster asks the node serving HTTP at addr to remove nodeID from the cluster
func (t *Transport) LeaveCluster(ctx context.Context, addr, nodeID string) error {
	return t.post(ctx, addr, "/raft/leave", joinRequest{NodeID: nodeID})
}

func (t *Transport) post(ctx context.Context, addr, path string, body joinRequest) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addr+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

// RaftHandler returns an HTTP handler for Raft-related operations
func (t *Transport) RaftHandler() http.Handler {
	mux := http.NewServeMux()

	// Handler for joining the cluster
	mux.HandleFunc("/join", func(w http.ResponseWriter, r *http.Request) {
		req, ok := t.decodeMembership(w, r)
		if !ok {
			return
		}
		if req.NodeAddr == "" {
			http.Error(w, "node_addr is required", http.StatusBadRequest)
			return
		}

		if err := t.node.AddVoter(req.NodeID, req.NodeAddr); err != nil {
			http.Error(w, fmt.Sprintf("Failed to add node: %v", err), http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
	})

	// Handler for leaving the cluster
	mux.HandleFunc("/leave", func(w http.ResponseWriter, r *http.Request) {
		req, ok := t.decodeMembership(w, r)
		if !ok {
			return
		}

		if err := t.node.RemoveServer(req.NodeID); err != nil {
			http.Error(w, fmt.Sprintf("Failed to remove node: %v", err), http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
	})

	return mux
}

// decodeMembership validates a membership request. Only the leader can change
// the cluster configuration.
func (t *Transport) decodeMembership(w http.ResponseWriter, r *http.Request) (joinRequest, bool) {
	var req joinRequest

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return req, false
	}

	if !t.node.Leader() {
		http.Error(w, "Not the leader: "+t.node.LeaderAddress(), http.StatusConflict)
		return req, false
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to decode request: %v", err), http.StatusBadRequest)
		return req, false
	}
	if req.NodeID == "" {
		http.Error(w, "node_id is required", http.StatusBadRequest)
		return req, false
	}
	return req, true
}
