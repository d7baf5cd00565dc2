package raft

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/devadigapratham/filavault/api/models"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb/v2"
)

const applyTimeout = 5 * time.Second

// Node represents a node in the Raft cluster
type Node struct {
	raft      *raft.Raft
	fsm       *FSM
	transport *raft.NetworkTransport
	logStore  *raftboltdb.BoltStore
}

// Config represents the configuration for a Raft node
type Config struct {
	NodeID    string
	RaftAddr  string
	RaftDir   string
	Bootstrap bool
	Peers     []string
	LogLevel  string
}

// NewNode creates a new Raft node
func NewNode(config *Config) (*Node, error) {
	fsm := NewFSM()

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "raft",
		Level:  hclog.LevelFromString(config.LogLevel),
		Output: os.Stderr,
	})

	raftConfig := raft.DefaultConfig()
	raftConfig.LocalID = raft.ServerID(config.NodeID)
	raftConfig.SnapshotInterval = 20 * time.Second
	raftConfig.SnapshotThreshold = 1024
	raftConfig.Logger = logger

	// One BoltDB file serves as both the log store and the stable store
	logStore, err := raftboltdb.NewBoltStore(filepath.Join(config.RaftDir, "raft.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to create BoltDB store: %w", err)
	}

	snapshotStore, err := raft.NewFileSnapshotStoreWithLogger(config.RaftDir, 3, logger.Named("snapshot"))
	if err != nil {
		logStore.Close()
		return nil, fmt.Errorf("failed to create snapshot store: %w", err)
	}

	addr, err := net.ResolveTCPAddr("tcp", config.RaftAddr)
	if err != nil {
		logStore.Close()
		return nil, fmt.Errorf("failed to resolve TCP address: %w", err)
	}
	transport, err := raft.NewTCPTransportWithLogger(config.RaftAddr, addr, 3, 10*time.Second, logger.Named("transport"))
	if err != nil {
		logStore.Close()
		return nil, fmt.Errorf("failed to create TCP transport: %w", err)
	}

	r, err := raft.NewRaft(raftConfig, fsm, logStore, logStore, snapshotStore, transport)
	if err != nil {
		transport.Close()
		logStore.Close()
		return nil, fmt.Errorf("failed to create Raft instance: %w", err)
	}

	if config.Bootstrap {
		configuration := raft.Configuration{
			Servers: []raft.Server{
				{
					ID:      raft.ServerID(config.NodeID),
					Address: raft.ServerAddress(config.RaftAddr),
				},
			},
		}

		for _, peer := range config.Peers {
			if peer != config.RaftAddr {
				configuration.Servers = append(configuration.Servers, raft.Server{
					ID:      raft.ServerID(fmt.Sprintf("node-%s", peer)),
					Address: raft.ServerAddress(peer),
				})
			}
		}

		f := r.BootstrapCluster(configuration)
		if err := f.Error(); err != nil && err != raft.ErrCantBootstrap {
			return nil, fmt.Errorf("failed to bootstrap cluster: %w", err)
		}
	}

	return &Node{
		raft:      r,
		fsm:       fsm,
		transport: transport,
		logStore:  logStore,
	}, nil
}

// Apply proposes a command to the Raft log and returns the FSM's response
func (n *Node) Apply(cmd *models.Command) (any, error) {
	data, err := cmd.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal command: %w", err)
	}

	future := n.raft.Apply(data, applyTimeout)
	if err := future.Error(); err != nil {
		return nil, fmt.Errorf("failed to apply command to Raft log: %w", err)
	}

	resp := future.Response()
	if appErr, ok := resp.(error); ok && appErr != nil {
		return nil, fmt.Errorf("command application failed: %w", appErr)
	}
	return resp, nil
}

// GetFSM returns the FSM
func (n *Node) GetFSM() *FSM {
	return n.fsm
}

// Leader returns true if this node is the leader
func (n *Node) Leader() bool {
	return n.raft.State() == raft.Leader
}

// LeaderAddress returns the address of the current leader
func (n *Node) LeaderAddress() string {
	addr, _ := n.raft.LeaderWithID()
	return string(addr)
}

// State returns the current state of the Raft node
func (n *Node) State() string {
	return n.raft.State().String()
}

// WaitForLeader blocks until the cluster has elected a leader or timeout passes
func (n *Node) WaitForLeader(timeout time.Duration) error {
	deadline := time.After(timeout)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()

	for {
		if n.LeaderAddress() != "" {
			return nil
		}
		select {
		case <-tick.C:
		case <-deadline:
			return fmt.Errorf("no leader elected after %s", timeout)
		}
	}
}

// AddVoter adds a node to the cluster configuration
func (n *Node) AddVoter(id, addr string) error {
	return n.raft.AddVoter(raft.ServerID(id), raft.ServerAddress(addr), 0, 0).Error()
}

// RemoveServer removes a node from the cluster configuration
func (n *Node) RemoveServer(id string) error {
	return n.raft.RemoveServer(raft.ServerID(id), 0, 0).Error()
}

// Shutdown stops the Raft node
func (n *Node) Shutdown() error {
	var err error
	if n.raft != nil {
		err = n.raft.Shutdown().Error()
	}
	if n.transport != nil {
		n.transport.Close()
	}
	if n.logStore != nil {
		if cerr := n.logStore.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
