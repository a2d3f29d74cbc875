package domain

// Board snapshot types mirror the wire shape the dashboard expects:
// boards -> groups -> items_page -> items. The snapshot is rebuilt wholesale
// on every refresh and never partially mutated.

// UngroupedTitle is the bucket for items whose board group is missing.
const UngroupedTitle = "Ungrouped"

type ColumnValue struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type Subitem struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	ColumnValues []ColumnValue `json:"column_values"`
}

type BoardItem struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Subitems []Subitem `json:"subitems"`
}

// TrackedItem is one item as fetched from the external board, before
// grouping. GroupTitle may be empty when the API omits the group.
type TrackedItem struct {
	ID         string
	Name       string
	GroupTitle string
	Subitems   []Subitem
}

type ItemsPage struct {
	Items []BoardItem `json:"items"`
}

type BoardGroup struct {
	Title     string    `json:"title"`
	ItemsPage ItemsPage `json:"items_page"`
}

type Board struct {
	Groups []BoardGroup `json:"groups"`
}

type BoardSnapshot struct {
	Boards []Board `json:"boards"`
}

// BuildSnapshot groups fetched items by their group title, in first-seen
// order within this refresh. Items without a group land in UngroupedTitle.
func BuildSnapshot(items []TrackedItem) *BoardSnapshot {
	var order []string
	grouped := make(map[string][]BoardItem)
	for _, it := range items {
		title := it.GroupTitle
		if title == "" {
			title = UngroupedTitle
		}
		if _, seen := grouped[title]; !seen {
			order = append(order, title)
		}
		subs := it.Subitems
		if subs == nil {
			subs = []Subitem{}
		}
		grouped[title] = append(grouped[title], BoardItem{ID: it.ID, Name: it.Name, Subitems: subs})
	}
	groups := make([]BoardGroup, 0, len(order))
	for _, title := range order {
		groups = append(groups, BoardGroup{Title: title, ItemsPage: ItemsPage{Items: grouped[title]}})
	}
	return &BoardSnapshot{Boards: []Board{{Groups: groups}}}
}
