package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mmuslimabdulj/campus-realtime/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInviteCall(t *testing.T) {
	req := require.New(t)
	hub, sink := newTestHub(t)
	caller := connectUser(t, hub, "alice")
	callee := connectUser(t, hub, "bob")

	call, err := hub.InviteCall("alice", "bob")
	req.NoError(err)
	req.Equal(domain.CallStateInvited, call.State)
	req.NotEmpty(call.ID)
	req.NotEmpty(call.MediaRoomID)
	req.NotEqual(call.ID, call.MediaRoomID)

	ring := payloadOf[domain.IncomingCallPayload](t, expectFrame(t, callee, domain.MessageTypeIncomingCall))
	req.Equal(call.ID, ring.CallID)
	req.Equal("alice", ring.From)
	req.Equal(call.MediaRoomID, ring.MediaRoomID)

	ack := payloadOf[domain.CallInvitedPayload](t, expectFrame(t, caller, domain.MessageTypeCallInvited))
	req.Equal(call.ID, ack.CallID)
	req.Equal("bob", ack.To)

	req.Equal([]domain.CallState{domain.CallStateInvited}, sink.callStates(call.ID))
}

func TestInviteCall_Self(t *testing.T) {
	hub, _ := newTestHub(t)
	_, err := hub.InviteCall("alice", "alice")
	require.ErrorIs(t, err, domain.ErrSelfCall)
}

func TestAcceptCall(t *testing.T) {
	req := require.New(t)
	hub, sink := newTestHub(t)
	caller := connectUser(t, hub, "alice")
	callee := connectUser(t, hub, "bob")

	call, err := hub.InviteCall("alice", "bob")
	req.NoError(err)
	drain(caller)
	drain(callee)

	req.NoError(hub.AcceptCall(call.ID, "bob"))

	snap, ok := hub.CallSnapshot(call.ID)
	req.True(ok)
	req.Equal(domain.CallStateActive, snap.State)
	req.False(snap.AnsweredAt.IsZero())

	accepted := payloadOf[domain.AcceptCallPayload](t, expectFrame(t, caller, domain.MessageTypeAcceptCall))
	req.Equal(call.ID, accepted.CallID)
	req.Equal("bob", accepted.To)

	floating := payloadOf[domain.FloatingSessionPayload](t, expectFrame(t, callee, domain.MessageTypeFloatingSession))
	req.True(floating.Active)
	req.Equal("alice", floating.PeerID)
	req.Equal(call.MediaRoomID, floating.MediaRoomID)

	handle, ok := hub.FloatingSession("alice")
	req.True(ok)
	req.Equal("bob", handle.PeerID)
	req.Equal(call.ID, handle.CallID)

	req.Equal([]domain.CallState{domain.CallStateInvited, domain.CallStateActive}, sink.callStates(call.ID))
}

func TestAcceptCall_Errors(t *testing.T) {
	req := require.New(t)
	hub, _ := newTestHub(t)
	call, err := hub.InviteCall("alice", "bob")
	req.NoError(err)

	req.ErrorIs(hub.AcceptCall("nope", "bob"), domain.ErrCallNotFound)
	req.ErrorIs(hub.AcceptCall(call.ID, "alice"), domain.ErrNotParticipant, "caller cannot accept")
	req.ErrorIs(hub.AcceptCall(call.ID, "mallory"), domain.ErrNotParticipant)

	snap, _ := hub.CallSnapshot(call.ID)
	req.Equal(domain.CallStateInvited, snap.State)
}

func TestAcceptCall_DoubleAccept(t *testing.T) {
	req := require.New(t)
	hub, _ := newTestHub(t)
	connectUser(t, hub, "alice")
	connectUser(t, hub, "bob")

	call, err := hub.InviteCall("alice", "bob")
	req.NoError(err)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- hub.AcceptCall(call.ID, "bob")
		}()
	}
	wg.Wait()
	close(results)

	var ok, stale int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrStaleTransition):
			stale++
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	req.Equal(1, ok)
	req.Equal(1, stale)
}

func TestInviteCall_BusyCallee(t *testing.T) {
	req := require.New(t)
	hub, sink := newTestHub(t)
	connectUser(t, hub, "alice")
	bob := connectUser(t, hub, "bob")
	carol := connectUser(t, hub, "carol")

	first, err := hub.InviteCall("alice", "bob")
	req.NoError(err)
	req.NoError(hub.AcceptCall(first.ID, "bob"))
	drain(bob)

	second, err := hub.InviteCall("carol", "bob")
	req.ErrorIs(err, domain.ErrBusy)
	req.Equal(domain.CallStateBusyAborted, second.State)

	busy := payloadOf[domain.CallBusyPayload](t, expectFrame(t, carol, domain.MessageTypeCallBusy))
	req.Equal(second.ID, busy.CallID)
	req.Empty(drain(bob), "busy callee must not be rung")

	req.Equal([]domain.CallState{domain.CallStateBusyAborted}, sink.callStates(second.ID))
	req.ErrorIs(hub.AcceptCall(second.ID, "bob"), domain.ErrStaleTransition)

	// The first call is untouched
	snap, _ := hub.CallSnapshot(first.ID)
	req.Equal(domain.CallStateActive, snap.State)
}

func TestAcceptCall_PreAcceptRace(t *testing.T) {
	req := require.New(t)
	hub, _ := newTestHub(t)
	connectUser(t, hub, "alice")
	connectUser(t, hub, "bob")
	connectUser(t, hub, "carol")

	// Both invites ring before either is answered
	fromAlice, err := hub.InviteCall("alice", "bob")
	req.NoError(err)
	fromCarol, err := hub.InviteCall("carol", "bob")
	req.NoError(err)

	req.NoError(hub.AcceptCall(fromAlice.ID, "bob"))
	req.ErrorIs(hub.AcceptCall(fromCarol.ID, "bob"), domain.ErrBusy)

	snap, _ := hub.CallSnapshot(fromCarol.ID)
	req.Equal(domain.CallStateInvited, snap.State, "failed accept leaves the invite ringing")

	handle, _ := hub.FloatingSession("bob")
	req.Equal(fromAlice.ID, handle.CallID)
	_, carolBusy := hub.FloatingSession("carol")
	req.False(carolBusy, "no handle is granted when the pair cannot be acquired")
}

func TestInviteCall_TimeoutToMissed(t *testing.T) {
	req := require.New(t)
	hub, sink := newTestHub(t, func(o *Options) { o.CallInviteTimeout = 20 * time.Millisecond })
	caller := connectUser(t, hub, "alice")
	callee := connectUser(t, hub, "bob")

	call, err := hub.InviteCall("alice", "bob")
	req.NoError(err)

	missed := payloadOf[domain.CallMissedPayload](t, expectFrame(t, caller, domain.MessageTypeCallMissed))
	req.Equal(call.ID, missed.CallID)
	expectFrame(t, callee, domain.MessageTypeCallMissed)

	snap, _ := hub.CallSnapshot(call.ID)
	req.Equal(domain.CallStateMissed, snap.State)
	req.ErrorIs(hub.AcceptCall(call.ID, "bob"), domain.ErrStaleTransition, "late accept after timeout")

	req.Equal([]domain.CallState{domain.CallStateInvited, domain.CallStateMissed}, sink.callStates(call.ID))
}

func TestAcceptCall_StopsTimeout(t *testing.T) {
	req := require.New(t)
	hub, _ := newTestHub(t, func(o *Options) { o.CallInviteTimeout = 20 * time.Millisecond })
	connectUser(t, hub, "alice")
	connectUser(t, hub, "bob")

	call, err := hub.InviteCall("alice", "bob")
	req.NoError(err)
	req.NoError(hub.AcceptCall(call.ID, "bob"))

	time.Sleep(60 * time.Millisecond)
	snap, _ := hub.CallSnapshot(call.ID)
	req.Equal(domain.CallStateActive, snap.State)
}

func TestRejectCall(t *testing.T) {
	req := require.New(t)
	hub, _ := newTestHub(t)
	caller := connectUser(t, hub, "alice")

	call, err := hub.InviteCall("alice", "bob")
	req.NoError(err)
	drain(caller)

	req.ErrorIs(hub.RejectCall(call.ID, "alice"), domain.ErrNotParticipant)
	req.NoError(hub.RejectCall(call.ID, "bob"))

	rejected := payloadOf[domain.RejectCallPayload](t, expectFrame(t, caller, domain.MessageTypeRejectCall))
	req.Equal("bob", rejected.To)

	snap, _ := hub.CallSnapshot(call.ID)
	req.Equal(domain.CallStateRejected, snap.State)
	req.Equal("bob", snap.EndedBy)
	req.ErrorIs(hub.RejectCall(call.ID, "bob"), domain.ErrStaleTransition)
}

func TestCancelCall(t *testing.T) {
	req := require.New(t)
	hub, _ := newTestHub(t)
	connectUser(t, hub, "alice")
	callee := connectUser(t, hub, "bob")

	call, err := hub.InviteCall("alice", "bob")
	req.NoError(err)
	drain(callee)

	req.ErrorIs(hub.CancelCall(call.ID, "bob"), domain.ErrNotParticipant)
	req.NoError(hub.CancelCall(call.ID, "alice"))
	expectFrame(t, callee, domain.MessageTypeCancelCall)

	snap, _ := hub.CallSnapshot(call.ID)
	req.Equal(domain.CallStateCancelled, snap.State)

	// Cancelling an answered call is stale
	answered, err := hub.InviteCall("alice", "bob")
	req.NoError(err)
	req.NoError(hub.AcceptCall(answered.ID, "bob"))
	req.ErrorIs(hub.CancelCall(answered.ID, "alice"), domain.ErrStaleTransition)
}

func TestEndCall(t *testing.T) {
	req := require.New(t)
	hub, sink := newTestHub(t)
	caller := connectUser(t, hub, "alice")
	callee := connectUser(t, hub, "bob")

	call, err := hub.InviteCall("alice", "bob")
	req.NoError(err)
	req.ErrorIs(hub.EndCall(call.ID, "alice"), domain.ErrStaleTransition, "an unanswered call is cancelled, not ended")

	req.NoError(hub.AcceptCall(call.ID, "bob"))
	drain(caller)
	drain(callee)

	req.ErrorIs(hub.EndCall(call.ID, "mallory"), domain.ErrNotParticipant)
	req.NoError(hub.EndCall(call.ID, "alice"))

	expectFrame(t, callee, domain.MessageTypeEndCall)
	cleared := payloadOf[domain.FloatingSessionPayload](t, expectFrame(t, callee, domain.MessageTypeFloatingSession))
	req.False(cleared.Active)

	_, busy := hub.FloatingSession("bob")
	req.False(busy)
	_, busy = hub.FloatingSession("alice")
	req.False(busy)

	snap, _ := hub.CallSnapshot(call.ID)
	req.Equal(domain.CallStateEnded, snap.State)
	req.Equal("alice", snap.EndedBy)
	req.ErrorIs(hub.EndCall(call.ID, "bob"), domain.ErrStaleTransition)

	req.Equal([]domain.CallState{domain.CallStateInvited, domain.CallStateActive, domain.CallStateEnded}, sink.callStates(call.ID))

	// Both parties are free again
	_, err = hub.InviteCall("bob", "alice")
	req.NoError(err)
}

func TestDisconnect_EndsActiveCall(t *testing.T) {
	req := require.New(t)
	hub, _ := newTestHub(t)
	caller := connectUser(t, hub, "alice")
	callee := connectUser(t, hub, "bob")

	call, err := hub.InviteCall("alice", "bob")
	req.NoError(err)
	req.NoError(hub.AcceptCall(call.ID, "bob"))
	drain(callee)

	hub.Disconnect(caller)

	expectFrame(t, callee, domain.MessageTypeEndCall)
	snap, _ := hub.CallSnapshot(call.ID)
	req.Equal(domain.CallStateEnded, snap.State)
	req.Equal("alice", snap.EndedBy)
	_, busy := hub.FloatingSession("bob")
	req.False(busy)
}

func TestDisconnect_KeepsCallWhileOtherTabOpen(t *testing.T) {
	req := require.New(t)
	hub, _ := newTestHub(t)
	tab1 := connectUser(t, hub, "alice")
	connectUser(t, hub, "alice")
	connectUser(t, hub, "bob")

	call, err := hub.InviteCall("alice", "bob")
	req.NoError(err)
	req.NoError(hub.AcceptCall(call.ID, "bob"))

	hub.Disconnect(tab1)

	snap, _ := hub.CallSnapshot(call.ID)
	req.Equal(domain.CallStateActive, snap.State)
}

func TestDisconnect_InviteSurvivesReconnect(t *testing.T) {
	req := require.New(t)
	hub, _ := newTestHub(t)
	connectUser(t, hub, "alice")
	callee := connectUser(t, hub, "bob")

	call, err := hub.InviteCall("alice", "bob")
	req.NoError(err)
	hub.Disconnect(callee)

	snap, _ := hub.CallSnapshot(call.ID)
	req.Equal(domain.CallStateInvited, snap.State)

	// The new channel is rung again and can answer
	again := newMockClient(hub)
	req.NoError(hub.RegisterUser(again, "bob"))
	ring := payloadOf[domain.IncomingCallPayload](t, expectFrame(t, again, domain.MessageTypeIncomingCall))
	req.Equal(call.ID, ring.CallID)

	req.NoError(hub.AcceptCall(call.ID, "bob"))
}

func TestAcceptCall_CallerOffline(t *testing.T) {
	req := require.New(t)
	hub, sink := newTestHub(t)
	caller := connectUser(t, hub, "alice")
	callee := connectUser(t, hub, "bob")

	call, err := hub.InviteCall("alice", "bob")
	req.NoError(err)
	drain(callee)

	// The caller's only channel goes away while the callee is still ringing
	hub.Disconnect(caller)
	snap, _ := hub.CallSnapshot(call.ID)
	req.Equal(domain.CallStateInvited, snap.State)

	req.ErrorIs(hub.AcceptCall(call.ID, "bob"), domain.ErrStaleTransition)

	cancelled := payloadOf[domain.CancelCallPayload](t, expectFrame(t, callee, domain.MessageTypeCancelCall))
	req.Equal(call.ID, cancelled.CallID)

	snap, _ = hub.CallSnapshot(call.ID)
	req.Equal(domain.CallStateCancelled, snap.State)
	req.Equal("alice", snap.EndedBy)
	req.Equal([]domain.CallState{domain.CallStateInvited, domain.CallStateCancelled}, sink.callStates(call.ID))

	_, busy := hub.FloatingSession("bob")
	req.False(busy, "the callee is not left holding a session")

	connectUser(t, hub, "carol")
	next, err := hub.InviteCall("carol", "bob")
	req.NoError(err)
	req.Equal(domain.CallStateInvited, next.State)
}

func TestAcceptCall_CalleeOffline(t *testing.T) {
	req := require.New(t)
	hub, _ := newTestHub(t)
	connectUser(t, hub, "alice")

	call, err := hub.InviteCall("alice", "bob")
	req.NoError(err)

	req.ErrorIs(hub.AcceptCall(call.ID, "bob"), domain.ErrStaleTransition)

	snap, _ := hub.CallSnapshot(call.ID)
	req.Equal(domain.CallStateInvited, snap.State, "the invite keeps ringing until it times out")
	_, busy := hub.FloatingSession("alice")
	req.False(busy)
}

func TestRegister_ResumesFloatingSession(t *testing.T) {
	req := require.New(t)
	hub, _ := newTestHub(t)
	connectUser(t, hub, "alice")
	connectUser(t, hub, "bob")

	call, err := hub.InviteCall("alice", "bob")
	req.NoError(err)
	req.NoError(hub.AcceptCall(call.ID, "bob"))

	phone := newMockClient(hub)
	req.NoError(hub.RegisterUser(phone, "bob"))

	resume := payloadOf[domain.SessionResumePayload](t, expectFrame(t, phone, domain.MessageTypeSessionResume))
	req.Equal(call.ID, resume.CallID)
	req.Equal(call.MediaRoomID, resume.MediaRoomID)
	req.Equal("alice", resume.PeerID)
	req.Equal(domain.CallStateActive, resume.State)
}

func TestRelaySignal(t *testing.T) {
	req := require.New(t)
	hub, _ := newTestHub(t)
	caller := connectUser(t, hub, "alice")
	callee := connectUser(t, hub, "bob")

	call, err := hub.InviteCall("alice", "bob")
	req.NoError(err)
	drain(caller)
	drain(callee)

	offer := domain.CallSignalPayload{
		CallID: call.ID,
		Kind:   "offer",
		From:   "spoofed",
		Data:   json.RawMessage(`{"sdp":"v=0"}`),
	}
	req.NoError(hub.RelaySignal("alice", offer))

	got := payloadOf[domain.CallSignalPayload](t, expectFrame(t, callee, domain.MessageTypeCallSignal))
	req.Equal("alice", got.From, "sender is stamped by the hub")
	req.Equal("offer", got.Kind)
	req.JSONEq(`{"sdp":"v=0"}`, string(got.Data))
	req.Empty(drain(caller), "signals are not echoed")

	req.ErrorIs(hub.RelaySignal("mallory", offer), domain.ErrNotParticipant)

	// Signals for a finished call are dropped silently
	req.NoError(hub.CancelCall(call.ID, "alice"))
	drain(callee)
	req.NoError(hub.RelaySignal("alice", offer))
	req.Empty(drain(callee))

	req.NoError(hub.RelaySignal("alice", domain.CallSignalPayload{CallID: "gone", Kind: "candidate", Data: json.RawMessage(`{}`)}))
}

func TestCallRetention(t *testing.T) {
	req := require.New(t)
	hub, _ := newTestHub(t, func(o *Options) { o.CallRetention = 20 * time.Millisecond })

	call, err := hub.InviteCall("alice", "bob")
	req.NoError(err)
	req.NoError(hub.RejectCall(call.ID, "bob"))

	req.Eventually(func() bool {
		_, ok := hub.CallSnapshot(call.ID)
		return !ok
	}, time.Second, 5*time.Millisecond)
	req.ErrorIs(hub.AcceptCall(call.ID, "bob"), domain.ErrCallNotFound)
}

func TestCallFlow_EndToEnd(t *testing.T) {
	req := require.New(t)
	hub, _ := newTestHub(t)
	u1 := newMockClient(hub)
	u2 := newMockClient(hub)

	hub.Dispatch(u1, frame(t, domain.MessageTypeRegisterUser, "", domain.RegisterUserPayload{UserID: "u1"}))
	hub.Dispatch(u2, frame(t, domain.MessageTypeRegisterUser, "", domain.RegisterUserPayload{UserID: "u2"}))
	expectFrame(t, u1, domain.MessageTypeRegistered)
	expectFrame(t, u2, domain.MessageTypeRegistered)

	hub.Dispatch(u1, frame(t, domain.MessageTypeInviteCall, "i1", domain.InviteCallPayload{To: "u2"}))
	ring := payloadOf[domain.IncomingCallPayload](t, expectFrame(t, u2, domain.MessageTypeIncomingCall))
	req.Equal("u1", ring.From)

	hub.Dispatch(u2, frame(t, domain.MessageTypeAcceptCall, "a1", domain.AcceptCallPayload{CallID: ring.CallID}))
	accepted := payloadOf[domain.AcceptCallPayload](t, expectFrame(t, u1, domain.MessageTypeAcceptCall))
	req.Equal(ring.CallID, accepted.CallID)
	req.Equal("u2", accepted.To)

	hub.Dispatch(u1, frame(t, domain.MessageTypeCallSignal, "s1", domain.CallSignalPayload{
		CallID: ring.CallID, Kind: "offer", Data: json.RawMessage(`"sdp"`),
	}))
	signal := payloadOf[domain.CallSignalPayload](t, expectFrame(t, u2, domain.MessageTypeCallSignal))
	req.Equal("u1", signal.From)

	hub.Dispatch(u2, frame(t, domain.MessageTypeEndCall, "e1", domain.EndCallPayload{CallID: ring.CallID}))
	expectFrame(t, u1, domain.MessageTypeEndCall)

	snap, _ := hub.CallSnapshot(ring.CallID)
	req.Equal(domain.CallStateEnded, snap.State)
	req.Equal("u2", snap.EndedBy)

	// A second accept is reported back as stale
	hub.Dispatch(u2, frame(t, domain.MessageTypeAcceptCall, "a2", domain.AcceptCallPayload{CallID: ring.CallID}))
	errPayload := payloadOf[domain.ErrorPayload](t, expectFrame(t, u2, domain.MessageTypeError))
	req.Equal(domain.CodeStaleTransition, errPayload.Code)
	req.Equal("a2", errPayload.RefID)
}

func TestInviteCall_BusyViaDispatchSendsNoError(t *testing.T) {
	req := require.New(t)
	hub, _ := newTestHub(t)
	connectUser(t, hub, "alice")
	connectUser(t, hub, "bob")
	carol := connectUser(t, hub, "carol")

	call, err := hub.InviteCall("alice", "bob")
	req.NoError(err)
	req.NoError(hub.AcceptCall(call.ID, "bob"))

	hub.Dispatch(carol, frame(t, domain.MessageTypeInviteCall, "", domain.InviteCallPayload{To: "bob"}))
	req.Equal([]domain.MessageType{domain.MessageTypeCallBusy}, typesOf(drain(carol)))
}

func TestInviteCall_ConcurrentInvitesToSameCallee(t *testing.T) {
	req := require.New(t)
	hub, _ := newTestHub(t)
	connectUser(t, hub, "alice")
	connectUser(t, hub, "bob")
	carol := connectUser(t, hub, "carol")

	var wg sync.WaitGroup
	ids := make(chan string, 2)
	for _, caller := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(caller string) {
			defer wg.Done()
			call, err := hub.InviteCall(caller, "carol")
			if assert.NoError(t, err) {
				assert.Equal(t, domain.CallStateInvited, call.State)
				ids <- call.ID
			}
		}(caller)
	}
	wg.Wait()
	close(ids)

	var callIDs []string
	for id := range ids {
		callIDs = append(callIDs, id)
	}
	req.Len(callIDs, 2)

	rings := 0
	for _, m := range drain(carol) {
		if m.Type == domain.MessageTypeIncomingCall {
			rings++
		}
	}
	req.Equal(2, rings, "both invites ring the callee")

	results := make([]error, len(callIDs))
	for i, id := range callIDs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			results[i] = hub.AcceptCall(id, "carol")
		}(i, id)
	}
	wg.Wait()

	var winner, loser string
	for i, err := range results {
		switch {
		case err == nil:
			req.Empty(winner, "only one accept may win")
			winner = callIDs[i]
		case errors.Is(err, domain.ErrBusy):
			loser = callIDs[i]
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	req.NotEmpty(winner)
	req.NotEmpty(loser)

	handle, ok := hub.FloatingSession("carol")
	req.True(ok)
	req.Equal(winner, handle.CallID)

	snap, _ := hub.CallSnapshot(loser)
	req.Equal(domain.CallStateInvited, snap.State)
}

func TestAcceptCall_RacesInviteTimeout(t *testing.T) {
	req := require.New(t)
	hub, sink := newTestHub(t, func(o *Options) { o.CallInviteTimeout = time.Millisecond })
	caller := connectUser(t, hub, "alice")
	callee := connectUser(t, hub, "bob")

	var accepted, missed int
	for i := 0; i < 30; i++ {
		call, err := hub.InviteCall("alice", "bob")
		req.NoError(err)

		done := make(chan error, 1)
		go func() {
			done <- hub.AcceptCall(call.ID, "bob")
		}()
		err = <-done

		switch {
		case err == nil:
			accepted++
			snap, _ := hub.CallSnapshot(call.ID)
			req.Equal(domain.CallStateActive, snap.State)

			// A timer that fired during the accept must not move the call
			time.Sleep(2 * time.Millisecond)
			req.Equal([]domain.CallState{domain.CallStateInvited, domain.CallStateActive}, sink.callStates(call.ID))
			req.NoError(hub.EndCall(call.ID, "alice"))
		case errors.Is(err, domain.ErrStaleTransition):
			missed++
			snap, _ := hub.CallSnapshot(call.ID)
			req.Equal(domain.CallStateMissed, snap.State)
			req.Equal([]domain.CallState{domain.CallStateInvited, domain.CallStateMissed}, sink.callStates(call.ID))
			_, busy := hub.FloatingSession("bob")
			req.False(busy)
		default:
			t.Fatalf("unexpected error %v", err)
		}
		drain(caller)
		drain(callee)
	}
	req.Equal(30, accepted+missed)
}

func TestClose_SettlesLiveCalls(t *testing.T) {
	req := require.New(t)
	hub, sink := newTestHub(t)
	for _, user := range []string{"alice", "bob", "carol"} {
		connectUser(t, hub, user)
	}

	active, err := hub.InviteCall("alice", "bob")
	req.NoError(err)
	req.NoError(hub.AcceptCall(active.ID, "bob"))
	ringing, err := hub.InviteCall("carol", "dave")
	req.NoError(err)
	rejected, err := hub.InviteCall("dave", "carol")
	req.NoError(err)
	req.NoError(hub.RejectCall(rejected.ID, "carol"))

	hub.Close()

	req.Equal([]domain.CallState{domain.CallStateInvited, domain.CallStateActive, domain.CallStateEnded}, sink.callStates(active.ID))
	req.Equal([]domain.CallState{domain.CallStateInvited, domain.CallStateMissed}, sink.callStates(ringing.ID))
	req.Equal([]domain.CallState{domain.CallStateInvited, domain.CallStateRejected}, sink.callStates(rejected.ID), "finished calls are not written again")

	_, busy := hub.FloatingSession("alice")
	req.False(busy)
	_, busy = hub.FloatingSession("bob")
	req.False(busy)
}
