package broadcast

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/abhisek/multiq/internal/store"
	"github.com/abhisek/multiq/internal/transport"
)

func TestParseAudience(t *testing.T) {
	tests := []struct {
		in      string
		want    Audience
		wantErr bool
	}{
		{in: "all", want: Audience{}},
		{in: "", want: Audience{}},
		{in: "whitelist", want: Audience{WhitelistedOnly: true}},
		{in: "non_whitelist", want: Audience{NonWhitelistedOnly: true}},
		{in: "active_7", want: Audience{ActiveWithinDays: 7}},
		{in: "active_0", wantErr: true},
		{in: "active_x", wantErr: true},
		{in: "friends", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseAudience(tt.in)
		if tt.wantErr {
			require.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, got, tt.in)
	}
}

func TestSendFiltersAndCounts(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	users := st.Users()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for _, id := range []int64{1, 2, 3} {
		_, _, err := users.GetOrCreate(ctx, id, "", "")
		require.NoError(t, err)
	}
	require.NoError(t, users.SetWhitelisted(ctx, 1, true))
	require.NoError(t, users.SetWhitelisted(ctx, 2, true))
	require.NoError(t, users.UpdateStats(ctx, 1, true, now.AddDate(0, 0, -1)))
	require.NoError(t, users.UpdateStats(ctx, 2, true, now.AddDate(0, 0, -30)))
	require.NoError(t, users.UpdateStats(ctx, 3, true, now.AddDate(0, 0, -2)))

	var delivered []int64
	sender := transport.SenderFunc(func(_ context.Context, m transport.Message) error {
		if m.UserID == 3 {
			return errors.New("blocked")
		}
		delivered = append(delivered, m.UserID)
		return nil
	})

	b := New(users, sender, nil, func() time.Time { return now })

	res, err := b.Send(ctx, Audience{WhitelistedOnly: true}, "hello")
	require.NoError(t, err)
	require.Equal(t, Result{Sent: 2}, res)
	require.ElementsMatch(t, []int64{1, 2}, delivered)

	delivered = nil
	res, err = b.Send(ctx, Audience{ActiveWithinDays: 7}, "hello")
	require.NoError(t, err)
	require.Equal(t, Result{Sent: 1, Failed: 1}, res)
	require.Equal(t, []int64{1}, delivered)
}
