// Package sound provides the procedural sound effect script embedded into
// playables. Effects are synthesized client-side with the Web Audio API, so
// no audio files ship inside the ad and nothing licensed is embedded.
package sound

// fxScript synthesizes short effect tones at runtime. Each method matches a
// game event the mechanic templates fire: tap, match, score, collect, jump,
// fail, win, pop.
const fxScript = `var SoundFX = (function() {
    var audioCtx = null;
    function getContext() {
        if (!audioCtx) {
            audioCtx = new (window.AudioContext || window.webkitAudioContext)();
        }
        return audioCtx;
    }
    function playTone(frequency, duration, type, volume) {
        try {
            var ctx = getContext();
            var osc = ctx.createOscillator();
            var gain = ctx.createGain();
            osc.connect(gain);
            gain.connect(ctx.destination);
            osc.type = type || 'sine';
            osc.frequency.setValueAtTime(frequency, ctx.currentTime);
            gain.gain.setValueAtTime(volume || 0.3, ctx.currentTime);
            gain.gain.exponentialRampToValueAtTime(0.01, ctx.currentTime + duration);
            osc.start(ctx.currentTime);
            osc.stop(ctx.currentTime + duration);
        } catch (e) {}
    }
    function playSweep(from, to, duration, volume) {
        try {
            var ctx = getContext();
            var osc = ctx.createOscillator();
            var gain = ctx.createGain();
            osc.connect(gain);
            gain.connect(ctx.destination);
            osc.type = 'sine';
            osc.frequency.setValueAtTime(from, ctx.currentTime);
            osc.frequency.exponentialRampToValueAtTime(to, ctx.currentTime + duration * 0.66);
            gain.gain.setValueAtTime(volume, ctx.currentTime);
            gain.gain.exponentialRampToValueAtTime(0.01, ctx.currentTime + duration);
            osc.start(ctx.currentTime);
            osc.stop(ctx.currentTime + duration);
        } catch (e) {}
    }
    return {
        tap: function() { playTone(800, 0.1, 'sine', 0.2); },
        match: function() {
            playTone(523, 0.1, 'sine', 0.3);
            setTimeout(function() { playTone(659, 0.1, 'sine', 0.3); }, 100);
            setTimeout(function() { playTone(784, 0.15, 'sine', 0.3); }, 200);
        },
        score: function() { playTone(880, 0.15, 'sine', 0.25); },
        collect: function() {
            playTone(587, 0.08, 'square', 0.2);
            setTimeout(function() { playTone(784, 0.12, 'square', 0.2); }, 80);
        },
        jump: function() { playSweep(300, 600, 0.15, 0.2); },
        fail: function() { playTone(200, 0.3, 'sawtooth', 0.2); },
        win: function() {
            playTone(523, 0.15, 'sine', 0.3);
            setTimeout(function() { playTone(659, 0.15, 'sine', 0.3); }, 150);
            setTimeout(function() { playTone(784, 0.15, 'sine', 0.3); }, 300);
            setTimeout(function() { playTone(1047, 0.3, 'sine', 0.3); }, 450);
        },
        pop: function() { playSweep(400, 100, 0.1, 0.3); }
    };
})();`

// stubScript keeps the same surface as fxScript so templates can call
// SoundFX unconditionally when sound is turned off.
const stubScript = `var SoundFX = (function() {
    function noop() {}
    return { tap: noop, match: noop, score: noop, collect: noop, jump: noop, fail: noop, win: noop, pop: noop };
})();`

// Script returns the JavaScript substituted behind the SOUND_SCRIPT
// placeholder: the Web Audio generator, or a silent stub when disabled.
func Script(enabled bool) string {
	if enabled {
		return fxScript
	}
	return stubScript
}
