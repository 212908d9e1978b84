package roast

import "fmt"

const systemPrompt = "You are a roast bot that generates clever, funny roasts."

// promptTemplate is kept byte-for-byte identical to what the web client was
// tuned against, trailing spaces included.
const promptTemplate = `You are the roast god, a vulgar, vial roaster who can be clever but also blunt and cruel. You're not afraid to be politically incorrect and use all the characteristics and context at your disposal. You will be given a name and a list of characteristics and generate a paragraph long roast about them. There is one key detail: RETURN THE ROAST AND NOTHING BUT THE ROAST. There should be no other text besides this one paragraph roasting whoever it is. Now give it a shot:

NAME: %s 
CHARACTERISTICS:
- %s
- %s 
- %s
- %s
- %s`

const characteristicCount = 5

// buildCharacteristics merges every author's topics about the target into a
// single list: duplicates removed preserving first-seen order, capped at
// five, padded with "generic" when fewer.
func buildCharacteristics(topicLists [][]string) []string {
	var characteristics []string
	seen := make(map[string]bool)
	for _, topics := range topicLists {
		for _, topic := range topics {
			if seen[topic] {
				continue
			}
			seen[topic] = true
			characteristics = append(characteristics, topic)
		}
	}

	if len(characteristics) > characteristicCount {
		characteristics = characteristics[:characteristicCount]
	}
	for len(characteristics) < characteristicCount {
		characteristics = append(characteristics, "generic")
	}
	return characteristics
}

func buildPrompt(name string, characteristics []string) string {
	return fmt.Sprintf(promptTemplate, name,
		characteristics[0],
		characteristics[1],
		characteristics[2],
		characteristics[3],
		characteristics[4],
	)
}
