package main

// sampleDocument carries the problems repair handles: a tab indent, a JSON
// trailing comma after a quoted value and a colon inside a value.
const sampleDocument = "# Sample with common issues (tab, JSON comma, colon in value)\n" +
	"root:\n" +
	"\tname: \"Frigate NVR\",\n" +
	"  version:  0.16\n" +
	"  cameras: \n" +
	"    - id: front_cam\n" +
	"      url: rtsp://user:pass@ip/profile1\n" +
	"      detect: true\n" +
	"      note: 值中含有:冒号\n"
