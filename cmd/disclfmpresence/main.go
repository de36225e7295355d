// Command disclfmpresence shows the track a last.fm user is listening to as
// their Discord Rich Presence.
package main

import "os"

func main() {
	os.Exit(Execute())
}
