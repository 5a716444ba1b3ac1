// Command anistream runs the anistream edge: API requests under /api/ are
// proxied to the metadata API with the bearer credential attached and
// cached, and every other path is served from the static site build.
package main

func main() {
	Execute()
}
