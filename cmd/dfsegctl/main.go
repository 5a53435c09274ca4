// Command dfsegctl creates, fills, inspects and materializes data frame
// segments from the shell.
package main

func main() {
	execute()
}
