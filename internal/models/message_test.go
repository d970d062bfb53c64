package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageTarget_Kind(t *testing.T) {
	cases := []struct {
		name    string
		target  MessageTarget
		want    TargetKind
		wantErr error
	}{
		{"direct", DirectTarget(2), TargetDirect, nil},
		{"group", GroupTarget(7), TargetGroup, nil},
		{"neither", MessageTarget{}, "", ErrNoTarget},
		{"both", MessageTarget{ReceiverID: 2, GroupID: 7}, "", ErrBothTarget},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			kind, err := tc.target.Kind()
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, kind)
		})
	}
}

func TestSendRequest_TargetFromWirePayload(t *testing.T) {
	req := require.New(t)

	var direct SendRequest
	req.NoError(json.Unmarshal([]byte(`{"receiver_id":2,"message":"hi"}`), &direct))
	kind, err := direct.Target().Kind()
	req.NoError(err)
	req.Equal(TargetDirect, kind)

	var group SendRequest
	req.NoError(json.Unmarshal([]byte(`{"group_id":7,"message":"hi"}`), &group))
	kind, err = group.Target().Kind()
	req.NoError(err)
	req.Equal(TargetGroup, kind)

	var neither SendRequest
	req.NoError(json.Unmarshal([]byte(`{"message":"hi"}`), &neither))
	_, err = neither.Target().Kind()
	req.ErrorIs(err, ErrNoTarget)
}

func TestClientEvent_DataDecodedPerEvent(t *testing.T) {
	req := require.New(t)

	raw := []byte(`{"event":"join_room","data":{"user_id":5}}`)
	var event ClientEvent
	req.NoError(json.Unmarshal(raw, &event))
	req.Equal(EventJoinRoom, event.Event)

	var payload JoinRoomPayload
	req.NoError(json.Unmarshal(event.Data, &payload))
	req.Equal(5, payload.UserID)
}
