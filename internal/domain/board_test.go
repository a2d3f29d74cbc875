package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSnapshotGroupsByTitle(t *testing.T) {
	items := []TrackedItem{
		{ID: "1", Name: "Hoodie run", GroupTitle: "This Week"},
		{ID: "2", Name: "Cap order", GroupTitle: "Next Week"},
		{ID: "3", Name: "Tee reprint", GroupTitle: "This Week"},
	}

	snap := BuildSnapshot(items)
	require.Len(t, snap.Boards, 1)
	groups := snap.Boards[0].Groups
	require.Len(t, groups, 2)

	// First-seen order within a refresh.
	assert.Equal(t, "This Week", groups[0].Title)
	assert.Equal(t, "Next Week", groups[1].Title)
	assert.Len(t, groups[0].ItemsPage.Items, 2)
	assert.Equal(t, "1", groups[0].ItemsPage.Items[0].ID)
	assert.Equal(t, "3", groups[0].ItemsPage.Items[1].ID)
}

func TestBuildSnapshotUngroupedBucket(t *testing.T) {
	snap := BuildSnapshot([]TrackedItem{{ID: "9", Name: "Loose job"}})
	require.Len(t, snap.Boards[0].Groups, 1)
	assert.Equal(t, UngroupedTitle, snap.Boards[0].Groups[0].Title)
}

func TestBuildSnapshotEmpty(t *testing.T) {
	snap := BuildSnapshot(nil)
	require.Len(t, snap.Boards, 1)
	assert.Empty(t, snap.Boards[0].Groups)
}

func TestBuildSnapshotNilSubitems(t *testing.T) {
	snap := BuildSnapshot([]TrackedItem{{ID: "1", Name: "x", GroupTitle: "g"}})
	got := snap.Boards[0].Groups[0].ItemsPage.Items[0]
	assert.NotNil(t, got.Subitems)
	assert.Empty(t, got.Subitems)
}
