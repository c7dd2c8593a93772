package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/gal-dev/galrt/domain/entities"
	"github.com/gal-dev/galrt/host"
	"github.com/gal-dev/galrt/host/registry"
	"github.com/gal-dev/galrt/internal/testutil"
	"github.com/gal-dev/galrt/wireformat"
)

// DispatchSuite calls through the Hosts of a loaded registry.
type DispatchSuite struct {
	suite.Suite
	ctx      context.Context
	engine   *testutil.Engine
	registry *registry.Registry
}

func (s *DispatchSuite) SetupTest() {
	s.ctx = context.Background()
	s.engine = testutil.NewEngine().
		Register("random", testutil.NewPlugin(entities.CapabilityScript).
			Method("rnd", func([]entities.Value) (entities.Value, error) {
				return entities.NewInt(4), nil
			})).
		Register("ruby", testutil.NewPlugin(entities.CapabilityText).
			Commands("ruby").
			Func("ruby", func(context.Context, *testutil.Guest, []byte) (any, error) {
				return entities.TextProcessResult{Line: entities.Block("<ruby>")}, nil
			})).
		Register("media", testutil.NewPlugin(entities.CapabilityAction|entities.CapabilityGame).
			Func("process_action", func(_ context.Context, _ *testutil.Guest, raw []byte) (any, error) {
				var params []entities.ActionProcessContext
				if err := wireformat.Unmarshal(raw, &params); err != nil {
					return nil, err
				}
				action := params[0].Action
				action.Line = append(action.Line, entities.Chars("!"))
				return action, nil
			}).
			Func("process_game", func(context.Context, *testutil.Guest, []byte) (any, error) {
				return entities.GameProcessResult{Props: entities.VarMap{"bgm": entities.NewStr("on")}}, nil
			}))

	dir := pluginDir(s.T(), "random.wasm", "ruby.wasm", "media.wasm")
	r, err := registry.Load(s.ctx, dir, nil, withEngine(s.engine))
	s.Require().NoError(err)
	s.registry = r
}

func (s *DispatchSuite) TearDownTest() {
	s.Require().NoError(s.registry.Close(s.ctx))
	s.True(s.engine.Closed())
	for _, name := range []string{"media", "random", "ruby"} {
		s.True(s.engine.Guest(name).Closed(), name)
	}
}

func (s *DispatchSuite) host(name string) *host.Host {
	h, ok := s.registry.Host(name)
	s.Require().True(ok, name)
	return h
}

func (s *DispatchSuite) TestScriptMethod() {
	v, err := s.host("random").DispatchMethod(s.ctx, "rnd", []entities.Value{entities.NewInt(1), entities.NewInt(6)})
	s.Require().NoError(err)
	testutil.AssertValue(s.T(), entities.NewInt(4), v)
	testutil.AssertNoLeaks(s.T(), s.engine.Guest("random"))
}

func (s *DispatchSuite) TestTextCommand() {
	owner, ok := s.registry.CommandOwner("ruby")
	s.Require().True(ok)
	s.Equal("ruby", owner)

	h := s.host(owner)
	res, err := h.DispatchCommand(s.ctx, "ruby", []string{"漢字", "かんじ"}, entities.TextProcessContext{FrontendType: "text"})
	s.Require().NoError(err)
	s.Equal(entities.Block("<ruby>"), res.Line)
}

func (s *DispatchSuite) TestActionAndGame() {
	s.Equal([]string{"media"}, s.registry.ActionPlugins())
	s.Equal([]string{"media"}, s.registry.GamePlugins())

	h := s.host("media")
	action, err := h.ProcessAction(s.ctx, entities.ActionProcessContext{
		FrontendType: "text",
		Action:       entities.Action{Line: []entities.ActionLine{entities.Chars("hi")}},
	})
	s.Require().NoError(err)
	s.Equal("hi!", action.Text())

	game, err := h.ProcessGame(s.ctx, entities.GameProcessContext{Title: "t", Author: "a"})
	s.Require().NoError(err)
	testutil.AssertValue(s.T(), entities.NewStr("on"), game.Props["bgm"])
	testutil.AssertNoLeaks(s.T(), s.engine.Guest("media"))
}

func TestDispatchSuite(t *testing.T) {
	suite.Run(t, new(DispatchSuite))
}
