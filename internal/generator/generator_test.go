package generator_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/roach88/turbine/internal/deferral"
	"github.com/roach88/turbine/internal/generator"
	"github.com/roach88/turbine/internal/generator/mocks"
	"github.com/roach88/turbine/internal/ir"
)

func decl(id string) *ir.Decl {
	return ir.NewDecl(ir.DeclID(id), id, ir.KindType).AddAnnotation("X", nil)
}

func testEnv(buf *bytes.Buffer) *generator.Env {
	return &generator.Env{Logger: slog.New(slog.NewTextHandler(buf, nil))}
}

// TestBaseDefaults tests that unimplemented forms fail with "not implemented".
func TestBaseDefaults(t *testing.T) {
	b := generator.Base{ID: "b", Tags: []ir.Tag{"X"}}
	ctx := context.Background()

	assert.Equal(t, "b", b.Name())
	assert.Equal(t, []ir.Tag{"X"}, b.SupportedTags())
	assert.NoError(t, b.Finalize(ctx, nil))

	out := b.Process(ctx, nil, nil)
	assert.Equal(t, deferral.StatusFault, out.Status)
	assert.ErrorIs(t, out.Err, generator.ErrNotImplemented)
	assert.EqualError(t, b.ProcessOne(ctx, nil, decl("a")), "not implemented")
}

// TestAdaptCallsOncePerDeclaration tests the singular form adapter.
func TestAdaptCallsOncePerDeclaration(t *testing.T) {
	ctrl := gomock.NewController(t)
	single := mocks.NewMockSingle(ctrl)
	a, b := decl("pkg.A"), decl("pkg.B")

	gomock.InOrder(
		single.EXPECT().ProcessOne(gomock.Any(), gomock.Any(), a).Return(nil),
		single.EXPECT().ProcessOne(gomock.Any(), gomock.Any(), b).Return(nil),
	)

	g := generator.Adapt(single)
	var buf bytes.Buffer
	pass := generator.NewPass(testEnv(&buf), 1, "single", "X")

	out := g.Process(context.Background(), pass, []ir.Declaration{a, b})
	assert.Equal(t, deferral.StatusOK, out.Status)
	assert.Empty(t, out.Deferrals)
}

// TestAdaptRewrapsUnrootedSignals tests that an un-rooted deferral is rooted at the current declaration.
func TestAdaptRewrapsUnrootedSignals(t *testing.T) {
	ctrl := gomock.NewController(t)
	single := mocks.NewMockSingle(ctrl)
	a, b, member, outer := decl("pkg.A"), decl("pkg.B"), decl("pkg.B.m"), decl("pkg.Outer")

	single.EXPECT().ProcessOne(gomock.Any(), gomock.Any(), a).Return(deferral.NewRooted("rooted", a, outer))
	single.EXPECT().ProcessOne(gomock.Any(), gomock.Any(), b).Return(deferral.NewFor("waiting on Y", member))

	var buf bytes.Buffer
	out := generator.Adapt(single).Process(context.Background(),
		generator.NewPass(testEnv(&buf), 1, "single", "X"), []ir.Declaration{a, b})

	require.Equal(t, deferral.StatusOK, out.Status)
	require.Len(t, out.Deferrals, 2)
	assert.Same(t, outer, out.Deferrals[0].Root, "existing root is kept")

	assert.Equal(t, "waiting on Y", out.Deferrals[1].Message)
	assert.Same(t, member, out.Deferrals[1].Source)
	assert.Same(t, b, out.Deferrals[1].Root)
}

func TestAdaptFaultStopsBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	single := mocks.NewMockSingle(ctrl)
	a, b := decl("pkg.A"), decl("pkg.B")
	boom := errors.New("boom")

	single.EXPECT().ProcessOne(gomock.Any(), gomock.Any(), a).Return(boom)

	var buf bytes.Buffer
	out := generator.Adapt(single).Process(context.Background(),
		generator.NewPass(testEnv(&buf), 1, "single", "X"), []ir.Declaration{a, b})

	assert.Equal(t, deferral.StatusFault, out.Status)
	assert.ErrorIs(t, out.Err, boom)
}

func TestAdaptFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	single := mocks.NewMockSingle(ctrl)
	a := decl("pkg.A")

	single.EXPECT().ProcessOne(gomock.Any(), gomock.Any(), a).Return(deferral.MarkFatal(errors.New("disk")))

	var buf bytes.Buffer
	out := generator.Adapt(single).Process(context.Background(),
		generator.NewPass(testEnv(&buf), 1, "single", "X"), []ir.Declaration{a})
	assert.Equal(t, deferral.StatusFatal, out.Status)
}

// TestAdaptBindsDeclarationToLogger tests explicit per-declaration log context.
func TestAdaptBindsDeclarationToLogger(t *testing.T) {
	ctrl := gomock.NewController(t)
	single := mocks.NewMockSingle(ctrl)
	a := decl("pkg.A")

	single.EXPECT().ProcessOne(gomock.Any(), gomock.Any(), a).DoAndReturn(
		func(_ context.Context, pass *generator.Pass, _ ir.Declaration) error {
			pass.Logger.Info("working")
			return nil
		})

	var buf bytes.Buffer
	generator.Adapt(single).Process(context.Background(),
		generator.NewPass(testEnv(&buf), 3, "single", "X"), []ir.Declaration{a})

	assert.Contains(t, buf.String(), "msg=working generator=single pass=3 tag=X decl=pkg.A")
}

func TestAdaptDelegatesIdentityAndFinalize(t *testing.T) {
	ctrl := gomock.NewController(t)
	single := mocks.NewMockSingle(ctrl)
	env := &generator.Env{}

	single.EXPECT().Name().Return("single")
	single.EXPECT().SupportedTags().Return([]ir.Tag{"X"})
	single.EXPECT().Finalize(gomock.Any(), env).Return(nil)

	g := generator.Adapt(single)
	assert.Equal(t, "single", g.Name())
	assert.Equal(t, []ir.Tag{"X"}, g.SupportedTags())
	assert.NoError(t, g.Finalize(context.Background(), env))
}

// TestNewPassWithoutLogger tests that a nil env logger is tolerated.
func TestNewPassWithoutLogger(t *testing.T) {
	pass := generator.NewPass(&generator.Env{}, 1, "g", "X")
	require.NotNil(t, pass.Logger)
	pass.WithDecl(nil).Logger.Info("ok")
	assert.Equal(t, 1, pass.Number)
	assert.Equal(t, ir.Tag("X"), pass.Tag)
}
