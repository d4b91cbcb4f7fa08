// Command zeroshot starts and observes agent clusters described by a
// declarative cluster configuration file (spec.md §4.4).
package main

func main() {
	Execute()
}
