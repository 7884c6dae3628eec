package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmuslimabdulj/campus-realtime/internal/domain"
)

// SaveCall mirrors a call session into call_records
func (d *DB) SaveCall(ctx context.Context, call domain.CallSession) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO call_records
			(call_id, caller_id, callee_id, media_room_id, state, created_at, answered_at, ended_at, ended_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(call_id) DO UPDATE SET
			state = excluded.state,
			answered_at = excluded.answered_at,
			ended_at = excluded.ended_at,
			ended_by = excluded.ended_by`,
		call.ID, call.CallerID, call.CalleeID, call.MediaRoomID, string(call.State),
		toNanos(call.CreatedAt), toNanos(call.AnsweredAt), toNanos(call.EndedAt), call.EndedBy)
	if err != nil {
		return fmt.Errorf("save call %s: %w", call.ID, err)
	}
	return nil
}

// GetCall loads a call record
func (d *DB) GetCall(ctx context.Context, callID string) (domain.CallSession, error) {
	var (
		call                           domain.CallSession
		state                          string
		createdAt, answeredAt, endedAt int64
	)
	err := d.db.QueryRowContext(ctx, `
		SELECT call_id, caller_id, callee_id, media_room_id, state, created_at, answered_at, ended_at, ended_by
		FROM call_records WHERE call_id = ?`, callID).
		Scan(&call.ID, &call.CallerID, &call.CalleeID, &call.MediaRoomID, &state,
			&createdAt, &answeredAt, &endedAt, &call.EndedBy)
	if err == sql.ErrNoRows {
		return domain.CallSession{}, fmt.Errorf("%w: %s", domain.ErrCallNotFound, callID)
	}
	if err != nil {
		return domain.CallSession{}, fmt.Errorf("query call: %w", err)
	}
	call.State = domain.CallState(state)
	call.CreatedAt = fromNanos(createdAt)
	call.AnsweredAt = fromNanos(answeredAt)
	call.EndedAt = fromNanos(endedAt)
	return call, nil
}

// MissedCalls returns the calls a user missed, newest first
func (d *DB) MissedCalls(ctx context.Context, calleeID string, limit int) ([]domain.CallSession, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT call_id FROM call_records
		WHERE callee_id = ? AND state = ?
		ORDER BY created_at DESC LIMIT ?`,
		calleeID, string(domain.CallStateMissed), limit)
	if err != nil {
		return nil, fmt.Errorf("query missed calls: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan missed call: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	calls := make([]domain.CallSession, 0, len(ids))
	for _, id := range ids {
		call, err := d.GetCall(ctx, id)
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}
	return calls, nil
}
