package neighborhood

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleTcpOkThenGossipPromotesAggregate(t *testing.T) {
	status := New([]string{"10.0.0.1:1234"}, nil)
	status.SetCanMakeRoutes(false)

	status.Handle("10.0.0.1:1234", EventTCPOK, "")
	progress, ok := status.Progress("10.0.0.1:1234")
	require.True(t, ok)
	assert.Equal(t, TcpConnectionEstablished, progress.Stage)

	status.Handle("10.0.0.1:1234", EventGossipReceived, "")
	progress, _ = status.Progress("10.0.0.1:1234")
	assert.Equal(t, NeighborshipEstablished, progress.Stage)
	assert.Equal(t, ConnectedToNeighbor, status.Aggregate())
}

func TestHandlePromotesToThreeHopsWhenRoutesAvailable(t *testing.T) {
	status := New([]string{"10.0.0.1:1234"}, nil)
	status.SetCanMakeRoutes(true)

	status.Handle("10.0.0.1:1234", EventTCPOK, "")
	status.Handle("10.0.0.1:1234", EventGossipReceived, "")

	assert.Equal(t, ThreeHopsRouteFound, status.Aggregate())
}

func TestHandlePassGossipResetsToStageZero(t *testing.T) {
	status := New([]string{"10.0.0.1:1234"}, nil)
	status.Handle("10.0.0.1:1234", EventTCPOK, "")

	status.Handle("10.0.0.1:1234", EventPassGossip, "10.0.0.2:1234")

	progress, _ := status.Progress("10.0.0.1:1234")
	assert.Equal(t, StageZero, progress.Stage)
	assert.Equal(t, "10.0.0.2:1234", progress.PeerAddr)
}

func TestHandleNonAdjacentTransitionPanics(t *testing.T) {
	status := New([]string{"10.0.0.1:1234"}, nil)

	assert.Panics(t, func() {
		status.Handle("10.0.0.1:1234", EventGossipReceived, "")
	})
}

func TestHandleDeadEndFromAnyStage(t *testing.T) {
	status := New([]string{"10.0.0.1:1234"}, nil)
	status.Handle("10.0.0.1:1234", EventTCPOK, "")
	status.Handle("10.0.0.1:1234", EventDeadEnd, "")

	progress, _ := status.Progress("10.0.0.1:1234")
	assert.Equal(t, StageFailed, progress.Stage)
	assert.Equal(t, DeadEndFound, progress.Failure)
}
