package rogue

// Version is the current release version of the rogue engine.
const Version = "0.4.0"
