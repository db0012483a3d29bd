// Package flownet is a composable network of explicit 1-D flow solvers.
//
// A flow network is a directed acyclic graph of spatial units ("nodes"),
// each owning its own state and numerical method: Muskingum channel
// routing, rule-curve reservoir operation, observation-forced flows, and
// pass-through placeholders. Nodes of one kind are built by a Maker from
// an immutable parameter table; the Graph builder wires makers together,
// validates the topology, and produces an immutable CompiledGraph whose
// Run drives the per-step advance/calculate/output loop in topological
// order with mass-budget accounting at node and graph level.
//
// Basic usage:
//
//	channels, _ := flownet.NewChannelMaker(dt, []flownet.ChannelParams{
//	    {ID: "seg1", TravelTime: 3600, Weight: 0.2},
//	})
//	graph, err := flownet.New().
//	    AddMaker(channels).
//	    SetLateral(flownet.Ref(flownet.KindChannel, "seg1"), exchange.Constant(2.5)).
//	    Build()
//	run := graph.NewRun()
//	defer run.Finalize()
//	if err := run.Simulate(ctx, steps, dt); err != nil { ... }
//
// Budget accounting follows a three-level policy (error, warn, off). A
// maker-level policy, when set, replaces the graph default for that
// maker's nodes; the graph-aggregate check always uses the graph-level
// policy.
package flownet
