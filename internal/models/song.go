// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

package models

import "github.com/goccy/go-json"

// Song is one chart in the library.
type Song struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Artist     string     `json:"artist"`
	Lyrics     string     `json:"lyrics"`
	Key        string     `json:"key"`
	Tempo      FlexString `json:"tempo"`
	Style      string     `json:"style"`
	YouTubeID  string     `json:"youtubeId"`
	Timestamps []Marker   `json:"timestamps"`
	CreatedAt  Millis     `json:"createdAt"`
	UpdatedAt  Millis     `json:"updatedAt"`
}

// UnmarshalJSON accepts a numeric id as well as a string one.
func (s *Song) UnmarshalJSON(data []byte) error {
	type Plain Song
	wire := struct {
		ID FlexString `json:"id"`
		*Plain
	}{Plain: (*Plain)(s)}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	s.ID = string(wire.ID)
	return nil
}

// Marker is a labelled position in the song's video reference.
type Marker struct {
	Label string     `json:"label"`
	Time  FlexString `json:"time"`
}

// SongInput carries the user-editable song fields.
type SongInput struct {
	Title      string   `json:"title" validate:"required,max=500"`
	Artist     string   `json:"artist" validate:"required,max=500"`
	Lyrics     string   `json:"lyrics" validate:"required"`
	Key        string   `json:"key" validate:"max=16"`
	Tempo      string   `json:"tempo" validate:"max=32"`
	Style      string   `json:"style" validate:"max=200"`
	YouTubeID  string   `json:"youtubeId" validate:"max=64"`
	Timestamps []Marker `json:"timestamps"`
}

// Apply copies the editable fields onto s. Identity and timestamps are left
// to the caller.
func (in SongInput) Apply(s *Song) {
	s.Title = in.Title
	s.Artist = in.Artist
	s.Lyrics = in.Lyrics
	s.Key = in.Key
	s.Tempo = FlexString(in.Tempo)
	s.Style = in.Style
	s.YouTubeID = in.YouTubeID
	s.Timestamps = append([]Marker{}, in.Timestamps...)
}

// Valid reports whether s carries the fields every stored song must have.
func (s *Song) Valid() bool {
	return s.Title != "" && s.Artist != "" && s.Lyrics != ""
}

// Normalize replaces nil slices so encoded records never carry null.
func (s *Song) Normalize() {
	if s.Timestamps == nil {
		s.Timestamps = []Marker{}
	}
}

// Clone returns a deep copy.
func (s Song) Clone() Song {
	out := s
	if s.Timestamps != nil {
		out.Timestamps = append([]Marker(nil), s.Timestamps...)
	}
	return out
}

// CloneSongs deep-copies a slice of songs.
func CloneSongs(in []Song) []Song {
	out := make([]Song, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

// FilterSongs keeps only valid songs, normalized.
func FilterSongs(in []Song) []Song {
	out := make([]Song, 0, len(in))
	for _, s := range in {
		if !s.Valid() {
			continue
		}
		s.Normalize()
		out = append(out, s)
	}
	return out
}
