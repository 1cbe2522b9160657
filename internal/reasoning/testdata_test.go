package reasoning

const validResponse = `Here is the review you asked for:
{
  "summary": "White built a strong centre but lost the thread after the queen trade.",
  "phases": {
    "opening": "Solid Italian setup.",
    "middlegame": "Missed a pin on move 18 {see note}.",
    "endgame": "Converted a rook ending poorly."
  },
  "key_moments": [
    {"move_number": 12, "move": "Nxe5", "fen": "r1bqk2r/pppp1ppp/2n2n2/2b1N3/2B1P3/8/PPPP1PPP/RNBQK2R b KQkq - 0 4", "evaluation": "+0.8", "commentary": "Good capture.", "is_mistake": false},
    {"move_number": 18, "move": "Qd2", "fen": "8/8/8/8/8/8/8/K6k w - - 0 1", "evaluation": "-1.5", "commentary": "Allows \"Bg4\" pin.", "is_mistake": true},
    {"move_number": 35, "move": "Kf2", "fen": "8/8/8/8/8/8/8/K6k b - - 0 1", "evaluation": "0.0", "commentary": "Passive king.", "is_mistake": true}
  ],
  "recommendations": ["Study pins", "Practise rook endings", "Calculate forcing lines"],
  "puzzles": [
    {"title": "Spot the pin", "description": "Find the move that wins material.", "fen": "r3k2r/ppp2ppp/8/8/8/8/PPP2PPP/R3K2R w KQkq - 0 1", "solution": ["Bg5", "Qd7", "Bxf6"], "hint": "Look at the queen", "difficulty": "Medium", "theme": "pin"},
    {"title": "Active king", "description": "Activate the king.", "fen": "8/8/8/8/8/8/8/K6k w - - 0 1", "solution": "Kb2 Kg2 Kc3", "difficulty": "insane", "theme": "endgame"}
  ]
}
Good luck with your training!`
