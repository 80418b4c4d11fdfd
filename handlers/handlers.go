package handlers

import "friendgraph/relationship"

// Graph is the relationship engine shared by all handlers, set once from
// main before routes are served.
var Graph *relationship.Graph

func Init(g *relationship.Graph) {
	Graph = g
}
