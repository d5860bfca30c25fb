// Command toppling runs, restores, inspects and serves sandpile models.
package main

func main() {
	Execute()
}
