// Package agent defines the pipeline capability contract and the five
// built-in story agents: StoryDirector, Character, Scene, Music and Critic.
//
// Agents are pure transformations of accumulated pipeline state plus their
// own learning state. They may recall from the shared memory store but never
// perform network I/O; all generation here is deterministic heuristics.
package agent
