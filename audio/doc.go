// Package audio implements a controller to the audioview, that is, a
// websocket server that tells the audioview (a browser page) which
// sounds to play on which channel.
//
// The Controller is the courtroom's Audio: sound effects, music and
// typewriter blips are sent as play commands. Vocal tracks (text to
// speech) are sent inline as data urls, and the audioview reports when
// they start and end. See the Wait method for more details.
package audio
