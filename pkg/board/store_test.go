package board

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/draftboard-io/draftboard/pkg/route"
)

func TestStore_PutShapeInsertAndReplace(t *testing.T) {
	s := NewStore()
	sh := NewShape(0, 0, 10, 10)
	require.NoError(t, s.PutShape(sh, OriginUser))
	require.Len(t, s.State().Shapes, 1)

	// Replacing by id swaps the pointer but never duplicates the shape.
	edited := sh.Clone()
	edited.X = 42
	require.NoError(t, s.PutShape(edited, OriginUser))
	st := s.State()
	require.Len(t, st.Shapes, 1)
	got, ok := st.Shape(sh.ID)
	require.True(t, ok)
	require.Same(t, edited, got)
}

func TestStore_PutShapeValidation(t *testing.T) {
	s := NewStore()
	require.Error(t, s.PutShape(nil, OriginUser))
	require.Error(t, s.PutShape(&Shape{ID: "  "}, OriginUser))
}

func TestStore_StructuralSharingAcrossMutations(t *testing.T) {
	s := NewStore()
	a := NewShape(0, 0, 10, 10)
	b := NewShape(100, 0, 10, 10)
	require.NoError(t, s.PutShape(a, OriginUser))
	require.NoError(t, s.PutShape(b, OriginUser))

	before := s.State()
	edited := b.Clone()
	edited.Y = 50
	require.NoError(t, s.PutShape(edited, OriginUser))
	after := s.State()

	// The untouched shape keeps its identity; the edited one is replaced.
	gotA, _ := after.Shape(a.ID)
	require.Same(t, a, gotA)
	gotB, _ := after.Shape(b.ID)
	require.NotSame(t, b, gotB)

	// The previous snapshot is untouched.
	prevB, _ := before.Shape(b.ID)
	require.Same(t, b, prevB)
}

func TestStore_PutConnectionDerivesHandles(t *testing.T) {
	s := NewStore()
	a := NewShape(0, 0, 10, 10)
	b := NewShape(200, 0, 10, 10)
	require.NoError(t, s.PutShape(a, OriginUser))
	require.NoError(t, s.PutShape(b, OriginUser))

	c := NewConnection(a.ID, b.ID)
	require.NoError(t, s.PutConnection(c, OriginUser))
	got, ok := s.State().Connection(c.ID)
	require.True(t, ok)
	require.Equal(t, route.SideRight, got.SourceSide)
	require.Equal(t, route.SideLeft, got.TargetSide)
}

func TestStore_PutConnectionKeepsExplicitSides(t *testing.T) {
	s := NewStore()
	a := NewShape(0, 0, 10, 10)
	b := NewShape(200, 0, 10, 10)
	require.NoError(t, s.PutShape(a, OriginUser))
	require.NoError(t, s.PutShape(b, OriginUser))

	c := NewConnection(a.ID, b.ID)
	c.SourceSide = route.SideTop
	c.TargetSide = route.SideBottom
	require.NoError(t, s.PutConnection(c, OriginUser))
	got, _ := s.State().Connection(c.ID)
	require.Equal(t, route.SideTop, got.SourceSide)
	require.Equal(t, route.SideBottom, got.TargetSide)
}

func TestStore_PutConnectionRejectsMissingEndpoint(t *testing.T) {
	s := NewStore()
	a := NewShape(0, 0, 10, 10)
	require.NoError(t, s.PutShape(a, OriginUser))
	require.Error(t, s.PutConnection(NewConnection(a.ID, "missing"), OriginUser))
	require.Empty(t, s.State().Connections)
}

func TestStore_DeleteShapeCascadesConnections(t *testing.T) {
	s := NewStore()
	a := NewShape(0, 0, 10, 10)
	b := NewShape(200, 0, 10, 10)
	c := NewShape(0, 200, 10, 10)
	for _, sh := range []*Shape{a, b, c} {
		require.NoError(t, s.PutShape(sh, OriginUser))
	}
	// Two different connections reference b, once per endpoint role.
	require.NoError(t, s.PutConnection(NewConnection(a.ID, b.ID), OriginUser))
	require.NoError(t, s.PutConnection(NewConnection(b.ID, c.ID), OriginUser))
	require.NoError(t, s.PutConnection(NewConnection(a.ID, c.ID), OriginUser))

	require.NoError(t, s.DeleteShapes(OriginUser, b.ID))
	st := s.State()
	require.Len(t, st.Shapes, 2)
	require.Len(t, st.Connections, 1)
	for _, conn := range st.Connections {
		require.False(t, conn.References(b.ID))
	}
}

func TestStore_ReplaceDropsDanglingConnections(t *testing.T) {
	s := NewStore()
	a := NewShape(0, 0, 10, 10)
	dangling := NewConnection(a.ID, "ghost")
	s.Replace(State{Shapes: []*Shape{a}, Connections: []*Connection{dangling}}, OriginLoad)
	require.Empty(t, s.State().Connections)
}

func TestStore_SubscribersSeeOrigin(t *testing.T) {
	s := NewStore()
	var origins []Origin
	s.Subscribe(func(_ State, origin Origin) {
		origins = append(origins, origin)
	})
	require.NoError(t, s.PutShape(NewShape(0, 0, 1, 1), OriginUser))
	s.Replace(State{}, OriginReplay)
	s.Clear(OriginTool)
	require.Equal(t, []Origin{OriginUser, OriginReplay, OriginTool}, origins)
}
