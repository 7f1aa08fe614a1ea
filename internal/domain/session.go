// Package domain contains entities without logic, just meta-data
package domain

import "github.com/google/uuid"

type SessionID string

func NewSessionID() SessionID { return SessionID(uuid.NewString()) }

// Role is the handshake side. It is independent of chess color.
type Role int

const (
	RoleUninitialized Role = iota
	RoleInitiator
	RoleJoiner
)

func (r Role) String() string {
	switch r {
	case RoleInitiator:
		return "initiator"
	case RoleJoiner:
		return "joiner"
	default:
		return "uninitialized"
	}
}

type ConnState int

const (
	StateIdle ConnState = iota
	StateOffering
	StateAnswering
	StateLocalDescriptorReady
	StateConnected
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateOffering:
		return "offering"
	case StateAnswering:
		return "answering"
	case StateLocalDescriptorReady:
		return "local_descriptor_ready"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "idle"
	}
}

// PeerSession is one negotiated point-to-point connection.
// Descriptors are kept in their serialized (out-of-band) form.
type PeerSession struct {
	ID               SessionID `json:"id"`
	Role             Role      `json:"-"`
	State            ConnState `json:"-"`
	LocalDescriptor  string    `json:"local_descriptor,omitempty"`
	RemoteDescriptor string    `json:"remote_descriptor,omitempty"`
}

func NewPeerSession() *PeerSession {
	return &PeerSession{ID: NewSessionID()}
}
