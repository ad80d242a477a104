package cli

import (
	"fmt"
	"io"
)

// BashCompletion generates bash completion script
const BashCompletion = `#!/bin/bash
# Bash completion for nutrition

_nutrition_completion() {
    local cur prev commands
    COMPREPLY=()
    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    commands="login logout register whoami scan today add remove completion"

    case "${prev}" in
        login)
            COMPREPLY=( $(compgen -W "-email -password" -- ${cur}) )
            return 0
            ;;
        register)
            COMPREPLY=( $(compgen -W "-email -password -name" -- ${cur}) )
            return 0
            ;;
        today|add|remove)
            COMPREPLY=( $(compgen -W "-date" -- ${cur}) )
            return 0
            ;;
        completion)
            COMPREPLY=( $(compgen -W "bash zsh fish" -- ${cur}) )
            return 0
            ;;
        -config)
            COMPREPLY=( $(compgen -f -- ${cur}) )
            return 0
            ;;
    esac

    COMPREPLY=( $(compgen -W "${commands} -config" -- ${cur}) )
    return 0
}

complete -F _nutrition_completion nutrition
`

// ZshCompletion generates zsh completion script
const ZshCompletion = `#compdef nutrition

_nutrition() {
    local -a commands
    commands=(
        'login:Sign in and remember the session'
        'logout:Sign out and forget the session'
        'register:Create an account'
        'whoami:Show the signed-in user'
        'scan:Look up a barcode'
        'today:Show the food log for a day'
        'add:Log servings of a barcode'
        'remove:Delete a logged entry'
        'completion:Print a shell completion script'
    )

    _arguments \
        '-config[Config file]:file:_files' \
        '1: :->command' \
        '*:: :->args'

    case $state in
        command)
            _describe 'command' commands
            ;;
        args)
            case $words[1] in
                login)
                    _arguments '-email[Email]:email:' '-password[Password]:password:'
                    ;;
                register)
                    _arguments '-email[Email]:email:' '-password[Password]:password:' '-name[Display name]:name:'
                    ;;
                today|add|remove)
                    _arguments '-date[Date YYYY-MM-DD]:date:'
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_nutrition "$@"
`

// FishCompletion generates fish completion script
const FishCompletion = `# Fish completion for nutrition

complete -c nutrition -f
complete -c nutrition -l config -r -d 'Config file'
complete -c nutrition -n '__fish_use_subcommand' -a 'login' -d 'Sign in and remember the session'
complete -c nutrition -n '__fish_use_subcommand' -a 'logout' -d 'Sign out and forget the session'
complete -c nutrition -n '__fish_use_subcommand' -a 'register' -d 'Create an account'
complete -c nutrition -n '__fish_use_subcommand' -a 'whoami' -d 'Show the signed-in user'
complete -c nutrition -n '__fish_use_subcommand' -a 'scan' -d 'Look up a barcode'
complete -c nutrition -n '__fish_use_subcommand' -a 'today' -d 'Show the food log for a day'
complete -c nutrition -n '__fish_use_subcommand' -a 'add' -d 'Log servings of a barcode'
complete -c nutrition -n '__fish_use_subcommand' -a 'remove' -d 'Delete a logged entry'
complete -c nutrition -n '__fish_use_subcommand' -a 'completion' -d 'Print a shell completion script'
complete -c nutrition -n '__fish_seen_subcommand_from completion' -a 'bash zsh fish'
`

// GenerateCompletion writes the completion script for shell to w.
func GenerateCompletion(w io.Writer, shell string) error {
	var script string
	switch shell {
	case "bash":
		script = BashCompletion
	case "zsh":
		script = ZshCompletion
	case "fish":
		script = FishCompletion
	default:
		return fmt.Errorf("unsupported shell: %s", shell)
	}

	_, err := io.WriteString(w, script)
	return err
}
