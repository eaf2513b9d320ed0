/*
Package sources contains the seven knowledge sources that react to case
graph mutations: clustering, media forensics, debunk recount, network
analysis, forensics cross-reference, semantic role classification and
case synthesis.

Each source reads the graph through the store, may call external
services, and writes back exclusively through store mutations. External
failures degrade to partial or empty output; a source never lets an
external error corrupt controller bookkeeping.

Register wires all seven into a controller with their priorities,
trigger types, conditions and cooldowns.
*/
package sources
