// Command emotisense runs expression detection from the terminal: single images,
// offline video analysis and the label catalog.
package main

func main() {
	Execute()
}
