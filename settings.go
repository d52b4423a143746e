package main

import (
	"unicode/utf8"

	"courtroomdriver/chatlog"
	"courtroomdriver/config"
	"courtroomdriver/courtroom"
	"courtroomdriver/typewriter"
)

// settingsFromConfig is what the courtroom reads whenever it needs a
// setting. It runs on the loop, as does every config change.
func settingsFromConfig() courtroom.Settings {
	c := config.UseConfig()

	s := courtroom.Settings{
		TickInterval: c.GetTickInterval(),
		BlipRate:     c.Chat.BlipRate,
		BlankBlips:   c.Chat.BlankBlips,
		AlwaysPre:    c.Chat.AlwaysPre,
		FirstPerson:  c.Chat.FirstPerson,

		Log: chatlog.Options{
			MaxLines:      c.Log.MaxLines,
			TopDown:       c.Log.TopDown,
			Newline:       c.Log.Newline,
			ShowEmpty:     c.Log.ShowEmpty,
			ShowMusic:     c.Log.ShowMusic,
			Timestamps:    c.Log.Timestamps,
			ClientID:      c.Log.ClientID,
			SelfHighlight: c.Log.SelfHighlight,
		},
		OOCMaxLines: c.Log.OOCMaxLines,
		Recording:   c.Log.Recording,

		Callwords: c.Callwords,
		Username:  c.Username,
		Showname:  c.Showname,

		ShoutNames:          c.Theme.ShoutNames,
		WTCENames:           c.Theme.WTCENames,
		EnableHighlighting:  c.Theme.EnableHighlighting,
		EnableShownameImage: c.Theme.EnableShownameImage,
		AreaMusicSeparated:  c.Theme.AreaMusicSeparated,
		CycleDing:           c.Theme.EnableCycleDing,
		ServerAlerts:        c.Chat.ServerAlerts,
	}

	for _, e := range c.Theme.Effects {
		s.Effects = append(s.Effects, courtroom.ThemeEffect{Name: e.Name, Sound: e.Sound, Once: e.Once})
	}
	for _, h := range c.Theme.Highlights {
		open, _ := utf8.DecodeRuneInString(h.Open)
		closing, _ := utf8.DecodeRuneInString(h.Close)
		s.Highlights = append(s.Highlights, typewriter.Highlight{
			Open:   open,
			Close:  closing,
			Color:  h.Color,
			Render: h.Render,
		})
	}
	return s
}
