// Package neighborhood tracks how far this node's handshake with each
// configured bootstrap peer has progressed, and aggregates that into a
// single readiness signal the Accountant consults before deciding it's
// safe to route (and therefore pay) through the mesh.
package neighborhood

import "fmt"

// ConnectionStage is one bootstrap peer's handshake progress.
type ConnectionStage int

const (
	StageZero ConnectionStage = iota
	TcpConnectionEstablished
	NeighborshipEstablished
	StageFailed
)

func (s ConnectionStage) String() string {
	switch s {
	case StageZero:
		return "StageZero"
	case TcpConnectionEstablished:
		return "TcpConnectionEstablished"
	case NeighborshipEstablished:
		return "NeighborshipEstablished"
	case StageFailed:
		return "Failed"
	default:
		return fmt.Sprintf("ConnectionStage(%d)", int(s))
	}
}

// FailureKind names why a bootstrap peer's handshake failed.
type FailureKind int

const (
	FailureNone FailureKind = iota
	TcpConnectionFailed
	DeadEndFound
	NoGossipResponseReceived
)

func (k FailureKind) String() string {
	switch k {
	case TcpConnectionFailed:
		return "TcpConnectionFailed"
	case DeadEndFound:
		return "DeadEndFound"
	case NoGossipResponseReceived:
		return "NoGossipResponseReceived"
	default:
		return "None"
	}
}

// ConnectionProgress is one bootstrap peer's handshake state (spec.md
// section 3). Transitions are strictly monotone — StageZero ->
// TcpConnectionEstablished -> NeighborshipEstablished, or any stage into
// StageFailed — except a PassGossip event from TcpConnectionEstablished,
// which resets back to StageZero against a new peer address.
type ConnectionProgress struct {
	PeerAddr string
	Stage    ConnectionStage
	Failure  FailureKind
}

// transitionError reports an attempted non-adjacent stage transition;
// the caller (OverallConnectionStatus) turns this into a panic, per
// spec.md section 8's invariant list.
type transitionError struct {
	from, to ConnectionStage
}

func (e transitionError) Error() string {
	return fmt.Sprintf("neighborhood: non-adjacent connection progress transition %s -> %s", e.from, e.to)
}

// tcpConnectionOK transitions StageZero -> TcpConnectionEstablished.
func (p *ConnectionProgress) tcpConnectionOK() error {
	if p.Stage != StageZero {
		return transitionError{from: p.Stage, to: TcpConnectionEstablished}
	}
	p.Stage = TcpConnectionEstablished
	return nil
}

// tcpConnectionFailed transitions StageZero -> Failed(TcpConnectionFailed).
func (p *ConnectionProgress) tcpConnectionFailed() error {
	if p.Stage != StageZero {
		return transitionError{from: p.Stage, to: StageFailed}
	}
	p.Stage = StageFailed
	p.Failure = TcpConnectionFailed
	return nil
}

// gossipReceived transitions TcpConnectionEstablished -> NeighborshipEstablished.
func (p *ConnectionProgress) gossipReceived() error {
	if p.Stage != TcpConnectionEstablished {
		return transitionError{from: p.Stage, to: NeighborshipEstablished}
	}
	p.Stage = NeighborshipEstablished
	return nil
}

// passGossip resets TcpConnectionEstablished back to StageZero against a
// new peer address, the one non-monotone transition the spec allows.
func (p *ConnectionProgress) passGossip(newAddr string) error {
	if p.Stage != TcpConnectionEstablished {
		return transitionError{from: p.Stage, to: StageZero}
	}
	p.Stage = StageZero
	p.PeerAddr = newAddr
	return nil
}

// deadEnd transitions any stage into Failed(DeadEndFound).
func (p *ConnectionProgress) deadEnd() {
	p.Stage = StageFailed
	p.Failure = DeadEndFound
}

// noGossipResponse transitions any stage into Failed(NoGossipResponseReceived).
func (p *ConnectionProgress) noGossipResponse() {
	p.Stage = StageFailed
	p.Failure = NoGossipResponseReceived
}
