// Provides platform-appropriate paths for the CLI and daemon.
//
// All paths follow XDG conventions on Linux and platform-native conventions
// on macOS and Windows. The name "imgspec" is used as the subdirectory
// under each base path.
package paths
