package toppling

// Version is the release of the module. Builds may override it with
// -ldflags "-X github.com/JaumeRibas/Aether2DImgMaker-sub016.Version=...".
var Version = "0.1.0"
