// Package agent provides scripted light cycle controllers.
//
// An Agent looks at an engine.Observation and picks the next turn for one
// player. Agents never touch the engine directly, so the same controller can
// drive a live session, a headless simulation or an opponent during training.
//
// Built-in agents are looked up by name through a Registry:
//
//	reg := agent.NewRegistry()
//	a, err := reg.New("wallhugger", rand.New(rand.NewSource(1)))
//	turn := a.Decide(obs, 2)
package agent
