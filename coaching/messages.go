package coaching

// variant is one phrasing of a message with its optional follow-up tip
type variant struct {
	text string
	tip  string
}

// pools maps category.kind to its message variants
var pools = map[string][]variant{
	"pitch.unstable": {
		{"Your pitch is wavering.", "Support the note with steady airflow from your core."},
		{"The pitch is moving around a lot.", "Pick one note and hold it before moving on."},
		{"Try to stabilise your pitch.", "Imagine the sound travelling in a straight line."},
	},
	"pitch.tooLow": {
		{"You're below your target range.", "Lift the pitch gently; think of the sound moving up and forward."},
		{"Your pitch is sitting low.", "Try a light siren upward to find your target area."},
		{"A little higher would land in your range.", ""},
	},
	"pitch.tooHigh": {
		{"You're above your target range.", "Ease the pitch down without letting the sound get heavy."},
		{"Your pitch is sitting high.", "Relax the throat and settle slightly lower."},
		{"A little lower would land in your range.", ""},
	},
	"pitch.inRange": {
		{"Right in your target range!", ""},
		{"Nice, that pitch is on target.", ""},
		{"Great pitch placement.", ""},
	},
	"resonance.dark": {
		{"Your resonance is quite dark.", "Brighten the vowel, as if smiling slightly while you speak."},
		{"Try bringing the sound further forward.", "Feel the buzz near your lips and nose."},
		{"The tone is sitting at the back.", "Raise the tongue a little and narrow the vowel."},
	},
	"resonance.bright": {
		{"Lovely bright resonance!", ""},
		{"Great forward placement.", ""},
		{"That resonance is sounding bright and clear.", ""},
	},
	"weight.tooHeavy": {
		{"Your voice sounds heavy.", "Lighten the sound with a little more air and less push."},
		{"Try a lighter vocal weight.", "Think of speaking to someone close to you, not across the room."},
		{"There's a lot of weight in the sound.", "Reduce volume slightly and let the tone thin out."},
	},
	"weight.tooLight": {
		{"Your voice is very light and airy.", "Add a touch more fold closure for a clearer tone."},
		{"The sound is quite breathy.", "Try a crisp onset, like the start of 'uh-oh'."},
	},
	"strain.detected": {
		{"Possible strain detected.", "Take a break, yawn gently and release your jaw."},
		{"The sound is getting pressed.", "Drop the volume and let the throat open."},
		{"Watch for tension.", "Check your neck and shoulders and let them relax."},
	},
	"encouragement.general": {
		{"You're doing great, keep going!", ""},
		{"Nice consistent practice.", ""},
		{"Every minute of practice counts.", ""},
		{"Keep it up, your voice is getting more comfortable.", ""},
	},
}
