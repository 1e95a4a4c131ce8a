package forbiddencalls

import (
	"errors"
	"log"
	"os"
)

func LoadBookmarks() {
	panic("store unavailable") // want "panic is forbidden"
}

func OpenStore() {
	log.Fatal("cannot open store") // want "log.Fatal is forbidden outside main function"
}

func StopServer() {
	os.Exit(1) // want "os.Exit is forbidden outside main function"
}

func ParseConfig(path string) {
	log.Fatalf("bad config %s", path) // want "log.Fatalf is forbidden outside main function"
}

func RenderPage() {
	log.Panicln("template missing") // want "log.Panicln is forbidden outside main function"
}

func SignOut() {
	panic("revoke failed")    // want "panic is forbidden"
	log.Fatal("fatal")        // want "log.Fatal is forbidden outside main function"
	os.Exit(0)                // want "os.Exit is forbidden outside main function"
	log.Println("not fatal")
}

func AddBookmark(title string) error {
	if title == "" {
		return errors.New("title is required")
	}
	log.Printf("added %s", title)
	return nil
}
